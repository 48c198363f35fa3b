package systemd

import (
	"errors"
	"strings"
	"testing"
)

type recordingRunner struct {
	commands []string
	runErr   error
	output   []byte
}

func (r *recordingRunner) Run(name string, args ...string) error {
	r.commands = append(r.commands, name+" "+strings.Join(args, " "))
	return r.runErr
}

func (r *recordingRunner) Output(name string, args ...string) ([]byte, error) {
	r.commands = append(r.commands, name+" "+strings.Join(args, " "))
	return r.output, r.runErr
}

func TestManagerStartStop(t *testing.T) {
	runner := &recordingRunner{}
	m := NewManagerWithRunner(runner)

	if err := m.Stop("openvpn@vtun0.service"); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := m.Start("openvpn@vtun0"); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	want := []string{
		"systemctl stop openvpn@vtun0.service",
		"systemctl start openvpn@vtun0.service",
	}
	if len(runner.commands) != len(want) {
		t.Fatalf("expected %d commands, got %v", len(want), runner.commands)
	}
	for i, cmd := range want {
		if runner.commands[i] != cmd {
			t.Fatalf("command %d: expected %q, got %q", i, cmd, runner.commands[i])
		}
	}
}

func TestManagerRejectsInvalidUnitNames(t *testing.T) {
	runner := &recordingRunner{}
	m := NewManagerWithRunner(runner)

	for _, name := range []string{"", "../evil.service", "bad/unit.service", "sp ace.service"} {
		if err := m.Start(name); err == nil {
			t.Fatalf("expected invalid unit name %q to fail", name)
		}
	}
	if len(runner.commands) != 0 {
		t.Fatalf("expected no systemctl invocations, got %v", runner.commands)
	}
}

func TestManagerStatus(t *testing.T) {
	runner := &recordingRunner{output: []byte("active\n")}
	m := NewManagerWithRunner(runner)

	status, err := m.Status("openvpn@vtun0")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status != "active" {
		t.Fatalf("expected status active, got %q", status)
	}
}

func TestManagerWrapsRunnerErrors(t *testing.T) {
	sentinel := errors.New("boom")
	runner := &recordingRunner{runErr: sentinel}
	m := NewManagerWithRunner(runner)

	err := m.Start("openvpn@vtun0")
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
}
