package reminder

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Chime plays the reminder sound. Failures are expected on machines without
// audio and are never fatal.
type Chime interface {
	Play(ctx context.Context) error
}

type NoopChime struct{}

func (NoopChime) Play(context.Context) error { return nil }

// BellChime writes the terminal bell.
type BellChime struct {
	mu sync.Mutex
	W  io.Writer
}

func (b *BellChime) Play(context.Context) error {
	if b.W == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.W, "\a")
	return err
}

// ExecChime runs a player command such as "paplay /usr/share/sounds/bell.oga".
type ExecChime struct {
	Command string
	Args    []string
}

func (e ExecChime) Play(ctx context.Context) error {
	if e.Command == "" {
		return nil
	}
	return exec.CommandContext(ctx, e.Command, e.Args...).Run()
}

// ParseChime maps a config value to a chime: "off", "bell" or "exec:<cmd args>".
func ParseChime(spec string, bellOut io.Writer) (Chime, error) {
	spec = strings.TrimSpace(spec)
	switch strings.ToLower(spec) {
	case "", "off", "none":
		return NoopChime{}, nil
	case "bell":
		return &BellChime{W: bellOut}, nil
	}
	if rest, ok := strings.CutPrefix(spec, "exec:"); ok {
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return nil, fmt.Errorf("reminder: chime %q has no command", spec)
		}
		return ExecChime{Command: fields[0], Args: fields[1:]}, nil
	}
	return nil, fmt.Errorf("reminder: unknown chime %q", spec)
}
