package sound

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Backend renders an asset at the given volume (0..1).
type Backend interface {
	Play(ctx context.Context, asset Asset, volume float64) error
}

// BellBackend rings the terminal bell. It cannot honour volume or the
// asset, so it is the fallback when no player command is configured.
type BellBackend struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBellBackend writes the bell character to w, or stderr when w is nil.
func NewBellBackend(w io.Writer) *BellBackend {
	if w == nil {
		w = os.Stderr
	}
	return &BellBackend{w: w}
}

// Play implements Backend.
func (b *BellBackend) Play(_ context.Context, _ Asset, _ float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := io.WriteString(b.w, "\a"); err != nil {
		return fmt.Errorf("ringing bell: %w", err)
	}
	return nil
}

// CommandBackend runs an external audio player such as paplay or afplay.
// Args may contain the placeholders {file}, {volume} (0..1) and
// {percent} (0..100).
type CommandBackend struct {
	Command string
	Args    []string
}

// Play implements Backend.
func (c CommandBackend) Play(ctx context.Context, asset Asset, volume float64) error {
	if c.Command == "" {
		return fmt.Errorf("no player command configured")
	}
	if asset.Path == "" {
		return fmt.Errorf("sound %q has no asset file", asset.ID)
	}
	args := c.expand(asset, volume)
	out, err := exec.CommandContext(ctx, c.Command, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("running %s: %w: %s", c.Command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c CommandBackend) expand(asset Asset, volume float64) []string {
	args := c.Args
	if len(args) == 0 {
		args = []string{"{file}"}
	}
	r := strings.NewReplacer(
		"{file}", asset.Path,
		"{volume}", strconv.FormatFloat(volume, 'f', 2, 64),
		"{percent}", strconv.Itoa(int(volume*100+0.5)),
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}
