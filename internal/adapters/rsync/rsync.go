// Package rsync runs the external mirror tool and streams its output.
package rsync

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arumata/snappy/internal/usecase"
)

// defaultTailSize bounds how much of each stream is kept for diagnostics.
const defaultTailSize = 64 << 10

// waitDelay is how long Run waits for output pipes to close after the
// process was killed on cancellation.
const waitDelay = 10 * time.Second

// Adapter implements usecase.MirrorPort with os/exec.
type Adapter struct {
	logger   *slog.Logger
	tailSize int
}

// New creates a new mirror adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("rsync adapter requires logger")
	}
	return &Adapter{logger: logger, tailSize: defaultTailSize}
}

// LookPath resolves binary on PATH. Paths containing a separator are
// checked as given.
func (a *Adapter) LookPath(ctx context.Context, binary string) (string, error) {
	_ = ctx
	return exec.LookPath(binary)
}

// Run starts req.Binary with req.Args followed by source and destination.
// Both output streams are drained concurrently; each line goes to sink as
// soon as it is read. The last tailSize bytes of each stream are returned
// in the result. A non-zero exit is reported through ExitCode only.
func (a *Adapter) Run(ctx context.Context, req usecase.MirrorRequest, sink usecase.LineSink) (usecase.MirrorResult, error) {
	args := make([]string, 0, len(req.Args)+2)
	args = append(args, req.Args...)
	args = append(args, req.Source, req.Destination)

	cmd := exec.CommandContext(ctx, req.Binary, args...) // #nosec G204 - binary and args come from validated config
	cmd.WaitDelay = waitDelay

	// Output goes through io.Pipe so that Wait, bounded by WaitDelay, owns
	// the OS pipes even when rsync children outlive a killed parent.
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW

	started := time.Now()
	if err := cmd.Start(); err != nil {
		_ = outW.Close()
		_ = errW.Close()
		return usecase.MirrorResult{ExitCode: -1}, fmt.Errorf("start %s: %w", req.Binary, err)
	}
	a.logger.DebugContext(ctx, "mirror started", "binary", req.Binary, "pid", cmd.Process.Pid)

	var mu sync.Mutex
	emit := func(stream usecase.Stream, line string) {
		if sink == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		sink(stream, line)
	}

	outTail := newTailBuffer(a.tailSize)
	errTail := newTailBuffer(a.tailSize)
	var g errgroup.Group
	g.Go(func() error { return drain(outR, usecase.StreamStdout, outTail, emit) })
	g.Go(func() error { return drain(errR, usecase.StreamStderr, errTail, emit) })
	waitErr := cmd.Wait()
	_ = outW.Close()
	_ = errW.Close()
	drainErr := g.Wait()

	res := usecase.MirrorResult{Stdout: outTail.String(), Stderr: errTail.String()}
	if waitErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(waitErr, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		case errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState != nil:
			res.ExitCode = cmd.ProcessState.ExitCode()
		default:
			res.ExitCode = -1
			return res, fmt.Errorf("wait %s: %w", req.Binary, waitErr)
		}
	}
	a.logger.DebugContext(ctx, "mirror finished",
		"binary", req.Binary, "exit_code", res.ExitCode, "duration", time.Since(started).Round(time.Millisecond))

	if drainErr != nil {
		return res, fmt.Errorf("read %s output: %w", req.Binary, drainErr)
	}
	return res, nil
}

// drain reads r line by line. Lines longer than the reader buffer are
// delivered whole; a final line without newline is delivered too.
func drain(r io.Reader, stream usecase.Stream, tail *tailBuffer, emit func(usecase.Stream, string)) error {
	br := bufio.NewReaderSize(r, 32<<10)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			tail.WriteString(line)
			emit(stream, strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) WriteString(s string) {
	t.buf = append(t.buf, s...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
