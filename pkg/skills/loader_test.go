package skills

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greetPlugin = `package greet

import "strings"

var wake string

func Setup(ctx map[string]interface{}) error {
	wake, _ = ctx["wake_word"].(string)
	return nil
}

func Name() string { return "greet" }

func Match(u string) bool { return strings.Contains(strings.ToLower(u), "good morning") }

func Execute(u string) (string, error) { return "Good morning from " + wake, nil }
`

const brokenPlugin = `package broken

func Name() string { return "broken"
`

const noExecutePlugin = `package noexec

func Name() string { return "noexec" }

func Match(u string) bool { return false }
`

const forbiddenPlugin = `package sneaky

import "os/exec"

func Name() string { return "sneaky" }

func Match(u string) bool { return false }

func Execute(u string) (string, error) {
	out, err := exec.Command("id").Output()
	return string(out), err
}
`

const replyManifest = `[
  {
    name: thanks
    triggers: ["thank you", "thanks"]
    reply: You're welcome.
  }
  {
    name: echo
    triggers: ["repeat after me"]
    reply: "You said: {utterance}"
  }
]`

func writeFiles(t *testing.T, fs afero.Fs, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, name), []byte(body), 0o644))
	}
}

func TestLoadPartialFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/skills"
	writeFiles(t, fs, dir, map[string]string{
		"a_greet.go":     greetPlugin,
		"b_broken.go":    brokenPlugin,
		"c_noexec.go":    noExecutePlugin,
		"d_forbidden.go": forbiddenPlugin,
		"e_bad.hjson":    `{"name": "nothing"}`,
		"f_reply.hjson":  replyManifest,
		"readme.txt":     "not a plugin",
		"z_dup.hjson":    `{"name": "greet", "triggers": ["hi"], "reply": "dup"}`,
	})

	r := NewRegistry(&Context{WakeWord: "flora"})
	res, err := NewLoader(fs, nil).Load(r, dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"greet", "thanks", "echo"}, res.Loaded)
	assert.Equal(t, []string{"greet", "thanks", "echo"}, r.Names())
	require.Equal(t, 5, res.FailureCount())

	var failed []string
	for _, f := range res.Failures {
		failed = append(failed, filepath.Base(f.Path))
	}
	assert.Equal(t, []string{"b_broken.go", "c_noexec.go", "d_forbidden.go", "e_bad.hjson", "z_dup.hjson"}, failed)
	assert.Contains(t, res.Failures[2].Error(), "os/exec")

	s := r.Match("good morning")
	require.NotNil(t, s)
	out, err := r.Execute(context.Background(), s, "good morning")
	require.NoError(t, err)
	assert.Equal(t, "Good morning from flora", out)

	s = r.Match("repeat after me please")
	require.NotNil(t, s)
	out, err = r.Execute(context.Background(), s, "repeat after me please")
	require.NoError(t, err)
	assert.Equal(t, "You said: repeat after me please", out)
}

func TestLoadMissingDirectory(t *testing.T) {
	r := NewRegistry(nil)
	res, err := NewLoader(afero.NewMemMapFs(), nil).Load(r, "/nope")
	require.NoError(t, err)
	assert.Empty(t, res.Loaded)
	assert.Zero(t, res.FailureCount())
}

func TestDiscoverOrderIsLexicographic(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/p", map[string]string{
		"b.hjson":    "",
		"a.go":       "",
		"c_test.go":  "",
		".hidden.go": "",
		"A.HJSON":    "",
		"notes.md":   "",
	})
	files, err := NewLoader(fs, nil).Discover("/p")
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/A.HJSON", "/p/a.go", "/p/b.hjson"}, files)
}

func TestScriptWrongSignature(t *testing.T) {
	src := `package wrong

func Name() string { return "wrong" }

func Match(u string) bool { return true }

func Execute(u string) string { return u }
`
	_, err := NewScriptCompiler().Compile("wrong.go", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Execute")
}

func TestScriptSetupReceivesPauseHandle(t *testing.T) {
	src := `package nap

var setPaused func(bool)

func Setup(ctx map[string]interface{}) error {
	setPaused = ctx["set_paused"].(func(bool))
	return nil
}

func Name() string { return "nap" }

func Match(u string) bool { return u == "nap" }

func Execute(u string) (string, error) {
	setPaused(true)
	return "zzz", nil
}
`
	f, err := NewScriptCompiler().Compile("nap.go", []byte(src))
	require.NoError(t, err)

	sc := &Context{Pause: newTestController()}
	r := NewRegistry(sc)
	_, err = r.Use(f)
	require.NoError(t, err)

	s := r.Match("nap")
	require.NotNil(t, s)
	out, err := r.Execute(context.Background(), s, "nap")
	require.NoError(t, err)
	assert.Equal(t, "zzz", out)
	assert.True(t, sc.Pause.IsPaused())
}

func TestManifestCommand(t *testing.T) {
	f, err := ParseManifest([]byte(`{
  name: say
  triggers: ["say"]
  command: ["echo", "{utterance}"]
  reply: "Result: {output}"
}`))
	require.NoError(t, err)
	built, err := f(nil)
	require.NoError(t, err)
	require.Len(t, built, 1)

	out, err := built[0].Execute(context.Background(), "say cheese", nil)
	require.NoError(t, err)
	assert.Equal(t, "Result: say cheese", out)
}

func TestManifestValidation(t *testing.T) {
	for name, src := range map[string]string{
		"no name":     `{"triggers": ["a"], "reply": "b"}`,
		"no triggers": `{"name": "a", "reply": "b"}`,
		"no action":   `{"name": "a", "triggers": ["a"]}`,
		"empty list":  `[]`,
		"not hjson":   `{"name": `,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseManifest([]byte(src))
			assert.Error(t, err)
		})
	}
}
