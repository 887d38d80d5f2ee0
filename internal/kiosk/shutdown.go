package kiosk

import (
	"context"
	"fmt"

	"github.com/muurk/orion-kiosk/internal/wifi"
)

// CommandShutdown powers the host off with a shell command.
type CommandShutdown struct {
	runner wifi.Runner
	argv   []string
}

// NewCommandShutdown runs "sudo shutdown now" through runner.
func NewCommandShutdown(runner wifi.Runner) *CommandShutdown {
	return &CommandShutdown{runner: runner, argv: []string{"sudo", "shutdown", "now"}}
}

func (s *CommandShutdown) Shutdown(ctx context.Context) error {
	if _, err := s.runner.Run(ctx, s.argv[0], s.argv[1:]...); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
