package instance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"todoperf/internal/besteffort"
	"todoperf/internal/config"
	"todoperf/internal/retry"
	"todoperf/internal/todoapi"
	"todoperf/pkg/logging"
)

// errExited is returned by the readiness probe once the spawned process is gone.
var errExited = errors.New("server process exited")

// StartupError reports a server that never became ready.
type StartupError struct {
	URL      string
	Attempts int
	Err      error
	Logs     Logs
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("server at %s not ready after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// Instance is a running or attached server.
type Instance struct {
	BaseURL   string
	PID       int
	StartedAt time.Time

	cmd  *exec.Cmd
	logs *logCapture

	done    chan struct{}
	waitErr error
}

// Attached reports whether the harness found the server already running.
func (i *Instance) Attached() bool {
	return i.cmd == nil
}

// Exited reports whether a spawned server has terminated.
func (i *Instance) Exited() bool {
	if i.done == nil {
		return false
	}
	select {
	case <-i.done:
		return true
	default:
		return false
	}
}

// Logs returns the output captured so far. Attached instances have none.
func (i *Instance) Logs() Logs {
	if i.logs == nil {
		return Logs{}
	}
	return i.logs.logs()
}

func (i *Instance) wait() {
	i.waitErr = i.cmd.Wait()
	if err := i.logs.close(); err != nil {
		logging.Debug("Instance", "Log capture ended with: %v", err)
	}
	close(i.done)
}

// Manager owns the server lifecycle of a run.
type Manager struct {
	cfg    config.ServerConfig
	client *todoapi.Client

	mu        sync.Mutex
	instances map[int]*Instance
}

// NewManager returns a manager probing the server through client.
func NewManager(cfg config.ServerConfig, client *todoapi.Client) *Manager {
	return &Manager{
		cfg:       cfg,
		client:    client,
		instances: make(map[int]*Instance),
	}
}

// Start spawns the configured server command, or attaches when none is
// configured, and waits until the server is ready. If the server never
// becomes ready the spawned process tree is killed and a *StartupError is
// returned.
func (m *Manager) Start(ctx context.Context) (*Instance, error) {
	if len(m.cfg.Command) == 0 {
		logging.Info("Instance", "No server command configured, attaching to %s", m.client.BaseURL())
		inst := &Instance{BaseURL: m.client.BaseURL(), StartedAt: time.Now()}
		if err := m.WaitForReady(ctx, inst); err != nil {
			return nil, err
		}
		return inst, nil
	}

	inst, err := m.spawn()
	if err != nil {
		return nil, &StartupError{URL: m.client.BaseURL(), Err: err}
	}

	if err := m.WaitForReady(ctx, inst); err != nil {
		logging.Error("Instance", err, "Server did not become ready, killing process group %d", inst.PID)
		m.kill(inst)
		var startupErr *StartupError
		if errors.As(err, &startupErr) {
			startupErr.Logs = inst.Logs()
		}
		return nil, err
	}

	logging.Info("Instance", "Server ready at %s (PID %d)", inst.BaseURL, inst.PID)
	return inst, nil
}

func (m *Manager) spawn() (*Instance, error) {
	// not CommandContext: cancellation must reach the whole group, which
	// Stop handles
	cmd := exec.Command(m.cfg.Command[0], m.cfg.Command[1:]...)
	cmd.Dir = m.cfg.WorkDir
	cmd.WaitDelay = m.cfg.ShutdownTimeout
	configureProcAttr(cmd)

	logs := newLogCapture()
	cmd.Stdout = logs.stdoutWriter
	cmd.Stderr = logs.stderrWriter

	logging.Info("Instance", "Starting server: %s", strings.Join(m.cfg.Command, " "))
	if err := cmd.Start(); err != nil {
		_ = logs.close()
		return nil, fmt.Errorf("failed to start server command: %w", err)
	}

	inst := &Instance{
		BaseURL:   m.client.BaseURL(),
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
		cmd:       cmd,
		logs:      logs,
		done:      make(chan struct{}),
	}
	go inst.wait()

	m.mu.Lock()
	m.instances[inst.PID] = inst
	m.mu.Unlock()

	logging.Debug("Instance", "Server process started with PID %d", inst.PID)
	return inst, nil
}

// WaitForReady polls the readiness path under the startup retry policy.
// Polling stops early when a spawned server exits.
func (m *Manager) WaitForReady(ctx context.Context, inst *Instance) error {
	attempts := 0
	err := retry.Do(ctx, m.cfg.Startup, func(err error) bool {
		return !errors.Is(err, errExited)
	}, func() error {
		attempts++
		if inst.Exited() {
			return fmt.Errorf("%w: %v", errExited, inst.waitErr)
		}
		err := m.probe(ctx)
		if err != nil {
			logging.Debug("Instance", "Readiness probe %d/%d failed: %v", attempts, m.cfg.Startup.MaxAttempts, err)
		}
		return err
	})
	if err != nil {
		return &StartupError{URL: inst.BaseURL + m.cfg.ReadinessPath, Attempts: attempts, Err: err}
	}
	return nil
}

func (m *Manager) probe(ctx context.Context) error {
	if m.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ProbeTimeout)
		defer cancel()
	}

	resp, err := m.client.Get(ctx, m.cfg.ReadinessPath)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &todoapi.StatusError{Method: http.MethodGet, Path: m.cfg.ReadinessPath, StatusCode: resp.StatusCode}
	}
	return nil
}

// Stop requests the shutdown endpoint and, for a spawned server, terminates
// its process group: SIGTERM, up to the shutdown timeout, then SIGKILL.
// Attached servers are left running unless ShutdownOnExit is set. Every
// failure is logged.
func (m *Manager) Stop(ctx context.Context, inst *Instance) {
	if inst == nil {
		return
	}
	if inst.Attached() && !m.cfg.ShutdownOnExit {
		logging.Info("Instance", "Leaving attached server at %s running", inst.BaseURL)
		return
	}

	ctx = context.WithoutCancel(ctx)
	m.requestShutdown(ctx)

	if inst.Attached() {
		return
	}
	m.terminate(inst)
}

// requestShutdown calls the shutdown endpoint. The server drops the
// connection while exiting, so transport errors are expected.
func (m *Manager) requestShutdown(ctx context.Context) {
	if m.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ProbeTimeout)
		defer cancel()
	}

	expected := []besteffort.Class{retry.IsConnectionError, besteffort.Is(io.EOF), besteffort.Is(io.ErrUnexpectedEOF)}
	err := besteffort.Run("Instance", "request "+m.cfg.ShutdownPath, func() error {
		return m.client.Shutdown(ctx, m.cfg.ShutdownPath)
	}, expected...)
	if err != nil {
		logging.Error("Instance", err, "Shutdown request failed")
	}
}

func (m *Manager) terminate(inst *Instance) {
	defer m.forget(inst)

	if !inst.Exited() {
		logging.Debug("Instance", "Sending SIGTERM to process group %d", inst.PID)
		if err := signalProcessGroup(inst.PID, syscall.SIGTERM); err != nil {
			logging.Debug("Instance", "SIGTERM failed: %v", err)
		}
	}

	timeout := m.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-inst.done:
		if inst.waitErr != nil {
			logging.Debug("Instance", "Server process %d exited with: %v", inst.PID, inst.waitErr)
		} else {
			logging.Info("Instance", "Server process %d exited", inst.PID)
		}
		// children may outlive the leader
		_ = signalProcessGroup(inst.PID, syscall.SIGKILL)
	case <-timer.C:
		logging.Warn("Instance", "Server process %d did not exit within %s, killing process group", inst.PID, timeout)
		m.kill(inst)
	}
}

// kill sends SIGKILL to the process group and waits for the leader.
func (m *Manager) kill(inst *Instance) {
	defer m.forget(inst)

	if err := signalProcessGroup(inst.PID, syscall.SIGKILL); err != nil {
		logging.Debug("Instance", "SIGKILL failed: %v", err)
	}
	select {
	case <-inst.done:
	case <-time.After(5 * time.Second):
		logging.Warn("Instance", "Server process %d still running after SIGKILL", inst.PID)
	}
}

func (m *Manager) forget(inst *Instance) {
	m.mu.Lock()
	delete(m.instances, inst.PID)
	m.mu.Unlock()
}

// KillAll terminates every spawned server that was not stopped yet.
func (m *Manager) KillAll() {
	m.mu.Lock()
	instances := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		instances = append(instances, inst)
	}
	m.mu.Unlock()

	for _, inst := range instances {
		m.kill(inst)
	}
}
