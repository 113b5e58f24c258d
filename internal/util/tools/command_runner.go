package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// CommandResult captures what a finished external process left behind. Stderr
// is kept as text for diagnostics on restore records.
type CommandResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   string
}

// CommandRunner abstracts spawning an external process with piped stdin and
// captured output, so phase logic can be tested without real binaries.
type CommandRunner interface {
	Run(
		ctx context.Context,
		name string,
		args []string,
		stdin []byte,
		extraEnv []string,
	) (*CommandResult, error)
}

// ExecCommandRunner runs commands via os/exec. The caller bounds the wall
// clock through ctx; on expiry the process is killed.
type ExecCommandRunner struct {
	logger *slog.Logger
}

func NewExecCommandRunner(logger *slog.Logger) *ExecCommandRunner {
	return &ExecCommandRunner{logger: logger}
}

func (r *ExecCommandRunner) Run(
	ctx context.Context,
	name string,
	args []string,
	stdin []byte,
	extraEnv []string,
) (*CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), extraEnv...)

	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("Running external command", "command", name)

	err := cmd.Run()

	result := &CommandResult{
		ExitCode: 0,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}

		if ctx.Err() != nil {
			return result, fmt.Errorf("command %s timed out: %w", name, ctx.Err())
		}

		return result, fmt.Errorf("command %s failed: %w", name, err)
	}

	return result, nil
}
