package download

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/xeptore/ytmdl/types"
)

const (
	stderrTailSize = 2 << 10
	waitDelay      = 5 * time.Second
)

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}

	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(bytes.ToValidUTF8(t.buf, nil))
}

// run executes name with args in its own process group, which is killed
// when ctx is done. It returns the captured stdout.
func run(ctx context.Context, logger zerolog.Logger, tool, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	logger.Debug().Str("tool", tool).Strs("args", cmd.Args).Msg("Starting command")

	configureProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stderr := &tailBuffer{limit: int(stderrTailSize)} //nolint:exhaustruct
	cmd.Stderr = stderr

	if err := cmd.Run(); nil != err {
		logger.
			Error().
			Err(err).
			Str("tool", tool).
			Str("stderr", stderr.String()).
			Msg("Command failed")

		if ctxErr := ctx.Err(); nil != ctxErr {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}

		return nil, types.ExternalToolFailed(tool, stderr.String(), err)
	}

	return stdout.Bytes(), nil
}
