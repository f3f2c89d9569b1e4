package commandmanager

import (
	"context"
	"time"
)

// CommandConfig describes a process to run.
type CommandConfig struct {
	Command string
	Args    []string
}

// CommandResult encapsulates the results from a command execution.
type CommandResult struct {
	Command   string
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// CommandManager runs commands on the machine hosting the deployment.
type CommandManager interface {
	Run(ctx context.Context, config CommandConfig) (CommandResult, error)
}
