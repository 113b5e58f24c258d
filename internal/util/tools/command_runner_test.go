package tools

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner() *ExecCommandRunner {
	return NewExecCommandRunner(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func Test_Run_EchoCommand_CapturesStdout(t *testing.T) {
	result, err := newRunner().Run(context.Background(), "echo", []string{"hello"}, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello\n", string(result.Stdout))
}

func Test_Run_StdinPayload_ReachesProcess(t *testing.T) {
	payload := []byte("piped payload")

	result, err := newRunner().Run(context.Background(), "cat", nil, payload, nil)

	require.NoError(t, err)
	assert.Equal(t, payload, result.Stdout)
}

func Test_Run_FailingCommand_ReturnsExitCode(t *testing.T) {
	result, err := newRunner().Run(
		context.Background(),
		"sh",
		[]string{"-c", "echo oops >&2; exit 3"},
		nil,
		nil,
	)

	require.Error(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, result.Stderr, "oops")
}

func Test_Run_ExtraEnv_VisibleToProcess(t *testing.T) {
	result, err := newRunner().Run(
		context.Background(),
		"sh",
		[]string{"-c", "printf %s \"$PGPASSWORD\""},
		nil,
		[]string{"PGPASSWORD=secret"},
	)

	require.NoError(t, err)
	assert.Equal(t, "secret", string(result.Stdout))
}

func Test_Run_ContextTimeout_KillsProcess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newRunner().Run(ctx, "sleep", []string{"10"}, nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func Test_Run_MissingBinary_ReturnsError(t *testing.T) {
	result, err := newRunner().Run(
		context.Background(),
		"definitely-not-a-real-binary",
		nil,
		nil,
		nil,
	)

	require.Error(t, err)
	assert.Equal(t, -1, result.ExitCode)
}
