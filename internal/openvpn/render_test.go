package openvpn

import (
	"net/netip"
	"strings"
	"testing"
)

func TestCipherName(t *testing.T) {
	cases := map[string]string{
		"aes256":    "aes-256-cbc",
		"aes128gcm": "aes-128-gcm",
		"3des":      "des-ede3-cbc",
		"none":      "none",
		"custom":    "custom",
	}
	for token, want := range cases {
		if got := cipherName(token); got != want {
			t.Errorf("cipherName(%q) = %q, want %q", token, got, want)
		}
	}
}

func TestRenderPushRoute(t *testing.T) {
	var b configBuilder
	renderPushRoute(&b, "192.168.100.0/24")
	renderPushRoute(&b, "2001:db8:5::/64")
	out := b.String()
	if !strings.Contains(out, `push "route 192.168.100.0 255.255.255.0"`) {
		t.Errorf("IPv4 route not expanded: %q", out)
	}
	if !strings.Contains(out, `push "route-ipv6 2001:db8:5::/64"`) {
		t.Errorf("IPv6 route not expanded: %q", out)
	}
}

func TestRenderClientConfigIPv6Prefix(t *testing.T) {
	view := &ServerView{}
	out := renderClientConfig(ClientConfig{Name: "carol", IPv6IP: []string{"2001:db8:1::10"}}, view)
	if !strings.Contains(out, "ifconfig-ipv6-push 2001:db8:1::10/64") {
		t.Errorf("expected /64 fallback prefix: %q", out)
	}
}

func TestV4Netmask(t *testing.T) {
	prefix := netip.MustParsePrefix("10.0.0.0/29")
	if got := v4Netmask(prefix); got != "255.255.255.248" {
		t.Fatalf("unexpected netmask %q", got)
	}
}

func TestRenderSiteToSiteTapLocalOnly(t *testing.T) {
	cfg := siteToSiteConfig()
	cfg.DeviceType = DeviceTap
	cfg.LocalAddress = []LocalAddress{{Address: "10.1.0.1", SubnetMask: "255.255.255.0"}}
	cfg.RemoteAddress = nil
	engine := &Engine{}
	acc, err := engine.Validate(cfg)
	if err != nil {
		t.Fatalf("tap endpoint without remote-address rejected: %v", err)
	}

	out := renderDaemonConfig(acc, artifactSet{}, DefaultPaths())
	if !strings.Contains(out, "ifconfig 10.1.0.1 255.255.255.0") {
		t.Fatalf("missing mask-form ifconfig directive: %q", out)
	}
}

func TestRenderDaemonConfigProtocols(t *testing.T) {
	cfg := siteToSiteConfig()
	cfg.Protocol = ProtocolTCPPassive
	engine := &Engine{}
	acc, err := engine.Validate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	out := renderDaemonConfig(acc, artifactSet{}, DefaultPaths())
	if !strings.Contains(out, "proto tcp-server") {
		t.Fatalf("tcp-passive not mapped to tcp-server: %q", out)
	}
	if !strings.Contains(out, "dev vtun0") {
		t.Fatalf("device directive missing: %q", out)
	}
}
