package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"eccorun/internal/config"
)

// SchedulerCommands are the batch scheduler tools the schedule workflow drives.
var SchedulerCommands = []string{"sbatch", "squeue"}

// RunScheduler checks what a node submitting attempts needs: the scheduler
// binaries on PATH and the submission script named in the monitor section.
func RunScheduler(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := make([]Result, 0, len(SchedulerCommands)+1)
	for _, command := range SchedulerCommands {
		results = append(results, CheckBinary(command, command))
	}
	results = append(results, CheckScript("Submission script", cfg.Monitor.Script))
	return results
}

// CheckBinary reports whether command resolves on PATH.
func CheckBinary(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckScript verifies that the sbatch script exists and is a regular file.
func CheckScript(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "monitor.script not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%q does not exist", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%q: %v", path, err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: name, Detail: fmt.Sprintf("%q is not a regular file", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}
