package openvpn

import (
	"os"
	"regexp"
	"strings"
	"testing"
)

var otpLinePattern = regexp.MustCompile(`^\S+ otp totp:sha1:base32:[A-Z2-7]{16}::xxx \*$`)

func TestTOTPReconcileCreatesEntries(t *testing.T) {
	store := &TOTPStore{Paths: Paths{RunDir: t.TempDir(), AuthDir: t.TempDir()}}
	if err := store.Reconcile("vtun0", []string{"alice", "bob"}); err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	data, err := os.ReadFile(store.Paths.OTPSecrets("vtun0"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 entries, got %d: %q", len(lines), lines)
	}
	for _, line := range lines {
		if !otpLinePattern.MatchString(line) {
			t.Fatalf("malformed OTP entry %q", line)
		}
	}
	if !strings.HasPrefix(lines[0], "alice ") || !strings.HasPrefix(lines[1], "bob ") {
		t.Fatalf("entries not in client order: %q", lines)
	}
}

func TestTOTPReconcileKeepsExistingSecrets(t *testing.T) {
	store := &TOTPStore{Paths: Paths{RunDir: t.TempDir(), AuthDir: t.TempDir()}}
	if err := store.Reconcile("vtun0", []string{"alice"}); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(store.Paths.OTPSecrets("vtun0"))
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Reconcile("vtun0", []string{"alice", "bob"}); err != nil {
		t.Fatal(err)
	}
	after, err := os.ReadFile(store.Paths.OTPSecrets("vtun0"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(after), string(before)) {
		t.Fatalf("existing secret rewritten:\nbefore %q\nafter %q", before, after)
	}
}

func TestTOTPReconcileDropsRemovedClients(t *testing.T) {
	store := &TOTPStore{Paths: Paths{RunDir: t.TempDir(), AuthDir: t.TempDir()}}
	if err := store.Reconcile("vtun0", []string{"alice", "bob"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Reconcile("vtun0", []string{"bob"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(store.Paths.OTPSecrets("vtun0"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "alice") {
		t.Fatalf("removed client still present: %q", data)
	}
	if !strings.HasPrefix(string(data), "bob ") {
		t.Fatalf("surviving client missing: %q", data)
	}
}

func TestTOTPReconcileFilePermissions(t *testing.T) {
	store := &TOTPStore{Paths: Paths{RunDir: t.TempDir(), AuthDir: t.TempDir()}}
	if err := store.Reconcile("vtun0", []string{"alice"}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(store.Paths.OTPSecrets("vtun0"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected mode 0600, got %o", perm)
	}
}
