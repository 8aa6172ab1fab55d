package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetRunFlags(t *testing.T) {
	t.Cleanup(func() {
		for _, name := range []string{"text", "voice"} {
			f := runCmd.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
}

func TestRunAcceptsTextFlag(t *testing.T) {
	resetRunFlags(t)
	require.NoError(t, runCmd.ParseFlags([]string{"--text"}))
	text, err := runCmd.Flags().GetBool("text")
	require.NoError(t, err)
	assert.True(t, text)
}

func TestRunRejectsTextWithVoice(t *testing.T) {
	resetRunFlags(t)
	require.NoError(t, runCmd.ParseFlags([]string{"--text", "--voice"}))
	err := runCmd.RunE(runCmd, nil)
	assert.ErrorContains(t, err, "mutually exclusive")
}
