// Package alarm plays the local siren when an alert escalates. Playback is
// best effort: players are tried in order and the chain never fails, so a
// machine with no audio stack still escalates normally.
package alarm

import (
	"context"
	"os"
	"os/exec"

	"github.com/linnemanlabs/go-core/log"
)

// Player attempts to produce an audible alarm.
type Player interface {
	Name() string
	Play(ctx context.Context, soundPath string) error
}

// Chain tries each player in order until one succeeds. When every player
// fails it logs and gives up; escalation continues regardless.
type Chain struct {
	players []Player
	logger  log.Logger
}

// NewChain builds a playback chain. A nil logger falls back to Nop.
func NewChain(logger log.Logger, players ...Player) *Chain {
	if logger == nil {
		logger = log.Nop()
	}
	return &Chain{players: players, logger: logger}
}

// DefaultChain wires the common Linux and macOS command line players plus
// the terminal bell.
func DefaultChain(logger log.Logger) *Chain {
	return NewChain(logger,
		CommandPlayer{Command: "paplay"},
		CommandPlayer{Command: "aplay"},
		CommandPlayer{Command: "afplay"},
		BellPlayer{},
	)
}

// Play sounds the alarm using the first working player.
func (c *Chain) Play(ctx context.Context, soundPath string) {
	for _, p := range c.players {
		if err := p.Play(ctx, soundPath); err != nil {
			c.logger.Info(ctx, "alarm player failed, trying next",
				"player", p.Name(), "error", err.Error())
			continue
		}
		c.logger.Info(ctx, "alarm sounded", "player", p.Name())
		return
	}
	c.logger.Info(ctx, "no alarm player available, continuing without audio")
}

// CommandPlayer shells out to an external audio player.
type CommandPlayer struct {
	Command string
}

func (p CommandPlayer) Name() string { return p.Command }

// Play runs the player against soundPath. Missing binaries and missing
// sound files surface as errors so the chain can fall through.
func (p CommandPlayer) Play(ctx context.Context, soundPath string) error {
	if _, err := os.Stat(soundPath); err != nil {
		return err
	}
	if _, err := exec.LookPath(p.Command); err != nil {
		return err
	}
	return exec.CommandContext(ctx, p.Command, soundPath).Run()
}

// BellPlayer rings the terminal bell. It needs no audio stack or sound
// file.
type BellPlayer struct{}

func (BellPlayer) Name() string { return "terminal-bell" }

func (BellPlayer) Play(ctx context.Context, _ string) error {
	for i := 0; i < 3; i++ {
		if _, err := os.Stdout.Write([]byte("\a")); err != nil {
			return err
		}
	}
	return nil
}
