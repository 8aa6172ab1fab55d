package worker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandSource obtains an utterance by running a speech-to-text command and
// reading its standard output. The command is killed when ctx ends, which is
// how a pause interrupts listening.
type CommandSource struct {
	argv []string
}

func NewCommandSource(argv []string) (*CommandSource, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("listen command is empty")
	}
	return &CommandSource{argv: argv}, nil
}

func (s *CommandSource) Next(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s: %w: %s", s.argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.ToLower(strings.TrimSpace(string(out))), nil
}

// CommandSink speaks a response through a text-to-speech command. An
// argument equal to {text} is replaced by the response; otherwise the text
// is written to the command's standard input.
type CommandSink struct {
	argv []string
}

func NewCommandSink(argv []string) (*CommandSink, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("speak command is empty")
	}
	return &CommandSink{argv: argv}, nil
}

func (s *CommandSink) Emit(ctx context.Context, text string) error {
	args := make([]string, len(s.argv)-1)
	inline := false
	for i, a := range s.argv[1:] {
		if strings.Contains(a, "{text}") {
			a = strings.ReplaceAll(a, "{text}", text)
			inline = true
		}
		args[i] = a
	}
	cmd := exec.CommandContext(ctx, s.argv[0], args...)
	if !inline {
		cmd.Stdin = strings.NewReader(text)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", s.argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
