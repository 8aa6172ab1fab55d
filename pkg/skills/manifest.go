package skills

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hjson/hjson-go/v4"
	"go.uber.org/zap"
)

// Manifest is a declarative skill definition read from an .hjson file.
//
//	{
//	  name: greet
//	  triggers: ["good morning"]
//	  reply: Good morning to you too.
//	}
//
// Either Reply or Command must be set. When both are set the command output
// is substituted into the reply as {output}.
type Manifest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Triggers    []string `json:"triggers"`
	Reply       string   `json:"reply"`
	Command     []string `json:"command"`
}

func (m Manifest) validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("manifest missing name")
	}
	if len(m.Triggers) == 0 {
		return fmt.Errorf("manifest %q has no triggers", m.Name)
	}
	if m.Reply == "" && len(m.Command) == 0 {
		return fmt.Errorf("manifest %q needs a reply or a command", m.Name)
	}
	return nil
}

// ParseManifest accepts a single manifest object or a list of them.
func ParseManifest(src []byte) (Factory, error) {
	var list []Manifest
	trimmed := bytes.TrimSpace(src)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		if err := hjson.Unmarshal(src, &list); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
	} else {
		var one Manifest
		if err := hjson.Unmarshal(src, &one); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
		list = []Manifest{one}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("manifest defines no skills")
	}
	for _, m := range list {
		if err := m.validate(); err != nil {
			return nil, err
		}
	}

	return func(sc *Context) ([]Skill, error) {
		out := make([]Skill, 0, len(list))
		for _, m := range list {
			out = append(out, &manifestSkill{m: m, match: ContainsAny(m.Triggers...)})
		}
		return out, nil
	}, nil
}

type manifestSkill struct {
	m     Manifest
	match func(string) bool
}

func (s *manifestSkill) Name() string { return s.m.Name }

func (s *manifestSkill) Match(utterance string) bool { return s.match(utterance) }

func (s *manifestSkill) Execute(ctx context.Context, utterance string, sc *Context) (string, error) {
	var output string
	if len(s.m.Command) > 0 {
		args := make([]string, len(s.m.Command))
		for i, a := range s.m.Command {
			args[i] = strings.ReplaceAll(a, "{utterance}", utterance)
		}
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return "", fmt.Errorf("%s: %w", args[0], err)
		}
		output = strings.TrimSpace(string(out))
		sc.logger().Debug("Manifest command finished", zap.String("skill", s.m.Name), zap.Int("bytes", len(out)))
	}
	if s.m.Reply == "" {
		return output, nil
	}
	r := strings.ReplaceAll(s.m.Reply, "{utterance}", utterance)
	return strings.ReplaceAll(r, "{output}", output), nil
}
