package util

import "testing"

func TestIsAddrAssignedLoopback(t *testing.T) {
	if !IsAddrAssigned("127.0.0.1") {
		t.Skip("loopback address not assigned in this environment")
	}
	if IsAddrAssigned("203.0.113.77") {
		t.Fatal("did not expect TEST-NET-3 address to be assigned")
	}
	if IsAddrAssigned("not-an-ip") {
		t.Fatal("invalid addresses must never count as assigned")
	}
}
