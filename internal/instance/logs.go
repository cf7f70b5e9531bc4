package instance

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"todoperf/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// Logs is the output captured from a spawned server.
type Logs struct {
	Stdout string
	Stderr string
}

// Combined interleaves both streams under headers, for error reports.
func (l Logs) Combined() string {
	combined := ""
	if l.Stdout != "" {
		combined += "=== STDOUT ===\n" + l.Stdout
	}
	if l.Stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += "=== STDERR ===\n" + l.Stderr
	}
	return combined
}

// logCapture copies the process output into buffers, echoing each line at
// debug level.
type logCapture struct {
	stdoutBuf    bytes.Buffer
	stderrBuf    bytes.Buffer
	stdoutWriter *io.PipeWriter
	stderrWriter *io.PipeWriter
	group        errgroup.Group
	mu           sync.RWMutex
	closeOnce    sync.Once
}

func newLogCapture() *logCapture {
	lc := &logCapture{}

	stdoutReader, stdoutWriter := io.Pipe()
	stderrReader, stderrWriter := io.Pipe()
	lc.stdoutWriter = stdoutWriter
	lc.stderrWriter = stderrWriter

	lc.group.Go(func() error { return lc.capture(stdoutReader, &lc.stdoutBuf, "stdout") })
	lc.group.Go(func() error { return lc.capture(stderrReader, &lc.stderrBuf, "stderr") })
	return lc
}

func (lc *logCapture) capture(reader *io.PipeReader, buffer *bytes.Buffer, stream string) error {
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		lc.mu.Lock()
		buffer.WriteString(line + "\n")
		lc.mu.Unlock()
		logging.Debug("Instance", "[server %s] %s", stream, line)
	}
	if err := scanner.Err(); err != nil {
		// keep the writer unblocked after an oversized line
		_, _ = io.Copy(io.Discard, reader)
		return err
	}
	return nil
}

// close ends both streams and waits until every line is buffered.
func (lc *logCapture) close() error {
	var err error
	lc.closeOnce.Do(func() {
		lc.stdoutWriter.Close()
		lc.stderrWriter.Close()
		err = lc.group.Wait()
	})
	return err
}

func (lc *logCapture) logs() Logs {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return Logs{
		Stdout: lc.stdoutBuf.String(),
		Stderr: lc.stderrBuf.String(),
	}
}
