package instance

import (
	"errors"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"todoperf/pkg/logging"
)

// CleanupStale sends SIGTERM to processes whose command line matches command,
// left over from earlier runs, and returns how many were signalled. Failures
// are logged; the function never blocks a run.
func CleanupStale(command []string) int {
	if len(command) == 0 {
		return 0
	}

	quoted := make([]string, 0, len(command))
	for _, arg := range command {
		quoted = append(quoted, regexp.QuoteMeta(arg))
	}
	pattern := strings.Join(quoted, `\s+`)

	output, err := exec.Command("pgrep", "-f", pattern).Output()
	if err != nil {
		// pgrep exits 1 when nothing matches
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			logging.Debug("Instance", "No stale server processes found")
			return 0
		}
		logging.Debug("Instance", "Could not check for stale server processes: %v", err)
		return 0
	}

	self := os.Getpid()
	killed := 0
	for _, pid := range parsePIDs(string(output)) {
		if pid == self {
			continue
		}
		process, err := os.FindProcess(pid)
		if err != nil {
			continue
		}
		if err := process.Signal(syscall.SIGTERM); err != nil {
			logging.Debug("Instance", "Could not send SIGTERM to PID %d: %v", pid, err)
			continue
		}
		killed++
		logging.Debug("Instance", "Terminated stale server process %d", pid)
	}

	if killed > 0 {
		logging.Info("Instance", "Cleaned up %d stale server process(es)", killed)
	}
	return killed
}

func parsePIDs(output string) []int {
	var pids []int
	for _, line := range strings.Split(output, "\n") {
		pid, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
