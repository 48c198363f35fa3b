package systemd

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

var unitNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+(@[A-Za-z0-9_.-]+)?\.service$`)

// CommandRunner abstracts process execution for testability.
type CommandRunner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	return cmd.Run()
}

func (execRunner) Output(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.CombinedOutput()
}

// ServiceManager defines the systemd operations other packages use.
type ServiceManager interface {
	Start(unitName string) error
	Stop(unitName string) error
	Restart(unitName string) error
	Status(unitName string) (string, error)
}

// Manager drives service operations through systemctl. Template instance
// units like openvpn@vtun0.service are supported; unit files themselves are
// owned by the distribution packages, not by this tool.
type Manager struct {
	runner CommandRunner
}

// NewManager creates a manager using the real systemctl binary.
func NewManager() *Manager {
	return &Manager{runner: execRunner{}}
}

// NewManagerWithRunner creates a manager with a custom command runner.
func NewManagerWithRunner(runner CommandRunner) *Manager {
	if runner == nil {
		runner = execRunner{}
	}
	return &Manager{runner: runner}
}

// Start runs `systemctl start <unit>`.
func (m *Manager) Start(unitName string) error {
	return m.runSystemctl("start", unitName)
}

// Stop runs `systemctl stop <unit>`.
func (m *Manager) Stop(unitName string) error {
	return m.runSystemctl("stop", unitName)
}

// Restart runs `systemctl restart <unit>`.
func (m *Manager) Restart(unitName string) error {
	return m.runSystemctl("restart", unitName)
}

// Status runs `systemctl is-active <unit>` and returns the state string.
func (m *Manager) Status(unitName string) (string, error) {
	resolved, err := normalizeUnitName(unitName)
	if err != nil {
		return "", err
	}
	out, runErr := m.runner.Output("systemctl", "is-active", resolved)
	status := strings.TrimSpace(string(out))
	if runErr != nil {
		return status, fmt.Errorf("systemctl is-active %s: %w", resolved, runErr)
	}
	return status, nil
}

func (m *Manager) runSystemctl(action, unitName string) error {
	resolved, err := normalizeUnitName(unitName)
	if err != nil {
		return err
	}
	if err := m.runner.Run("systemctl", action, resolved); err != nil {
		return fmt.Errorf("systemctl %s %s: %w", action, resolved, err)
	}
	return nil
}

func normalizeUnitName(unitName string) (string, error) {
	trimmed := strings.TrimSpace(unitName)
	if trimmed == "" {
		return "", fmt.Errorf("unit name is required")
	}
	if !strings.HasSuffix(trimmed, ".service") {
		trimmed += ".service"
	}
	if filepath.Base(trimmed) != trimmed || strings.ContainsAny(trimmed, `/\\`) {
		return "", fmt.Errorf("invalid unit name %q", unitName)
	}
	if !unitNamePattern.MatchString(trimmed) {
		return "", fmt.Errorf("invalid unit name %q", unitName)
	}
	return trimmed, nil
}
