package skills

import (
	"context"
	"fmt"
	"time"
)

// Builtins returns the factories for the skills compiled into Flora. They
// are registered before any plugin, in this order.
func Builtins() []Factory {
	return []Factory{
		Single(func(*Context) Skill { return NewPauseSkill() }),
		Single(func(*Context) Skill { return NewClockSkill(time.Now) }),
		Single(func(*Context) Skill { return NewSystemSkill() }),
		Single(func(*Context) Skill { return NewBrowserSkill() }),
	}
}

// NewPauseSkill pauses the assistant by voice. It returns no text: once the
// flag is set the engine suppresses output anyway, and resuming is up to the
// control surface.
func NewPauseSkill() Skill {
	return &FuncSkill{
		ID:      "pause",
		MatchFn: ContainsAny("pause", "stop listening", "go to sleep"),
		ExecFn: func(ctx context.Context, utterance string, sc *Context) (string, error) {
			if sc == nil || sc.Pause == nil {
				return "", fmt.Errorf("no pause controller in context")
			}
			sc.Pause.Set(true)
			return "", nil
		},
	}
}

// NewClockSkill answers time and date questions using now.
func NewClockSkill(now func() time.Time) Skill {
	dateMatch := ContainsAny("date", "what day")
	return &FuncSkill{
		ID:      "clock",
		MatchFn: ContainsAny("what time", "the time", "date today", "today's date", "what day"),
		ExecFn: func(ctx context.Context, utterance string, sc *Context) (string, error) {
			t := now()
			if dateMatch(utterance) {
				return "Today is " + t.Format("Monday, January 2, 2006") + ".", nil
			}
			return "It is " + t.Format("3:04 PM") + ".", nil
		},
	}
}
