package openvpn

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// Daemon cipher names keyed by configuration cipher tokens.
var cipherNames = map[string]string{
	"none":      "none",
	"des":       "des-cbc",
	"3des":      "des-ede3-cbc",
	"bf128":     "bf-cbc",
	"bf256":     "bf-cbc",
	"aes128":    "aes-128-cbc",
	"aes128gcm": "aes-128-gcm",
	"aes192":    "aes-192-cbc",
	"aes192gcm": "aes-192-gcm",
	"aes256":    "aes-256-cbc",
	"aes256gcm": "aes-256-gcm",
}

func cipherName(token string) string {
	if name, ok := cipherNames[token]; ok {
		return name
	}
	return token
}

// artifactSet records which credential files the generator materialized,
// keyed by kind, so the daemon config can reference exactly those.
type artifactSet map[ArtifactKind]string

// renderDaemonConfig serializes an accepted configuration into the daemon's
// native directive format.
func renderDaemonConfig(acc *Accepted, files artifactSet, paths Paths) string {
	cfg := acc.Config
	var b configBuilder

	b.line("### Autogenerated by openvpn-configd ###")
	b.line("# Changes to this file will be lost on the next commit")
	b.blank()
	b.line("verb 3")
	b.linef("status %s 30", paths.Status(cfg.Ifname))
	b.linef("writepid %s", paths.PID(cfg.Ifname))
	b.line("daemon")
	b.blank()

	deviceType := cfg.DeviceType
	if deviceType == "" {
		deviceType = DeviceTun
	}
	b.linef("dev-type %s", deviceType)
	b.linef("dev %s", cfg.Ifname)
	b.linef("user %s", serviceUser)
	b.linef("group %s", serviceGroup)
	b.line("persist-key")
	if cfg.MTU > 0 {
		b.linef("tun-mtu %d", cfg.MTU)
	}

	switch cfg.Protocol {
	case ProtocolTCPActive:
		b.line("proto tcp-client")
	case ProtocolTCPPassive:
		b.line("proto tcp-server")
	default:
		b.line("proto udp")
	}
	if cfg.LocalHost != "" {
		b.linef("local %s", cfg.LocalHost)
	}
	if cfg.LocalPort != 0 {
		b.linef("lport %d", cfg.LocalPort)
	}
	if cfg.RemotePort != 0 {
		b.linef("rport %d", cfg.RemotePort)
	}
	for _, host := range cfg.RemoteHost {
		b.linef("remote %s", host)
	}

	switch {
	case acc.Client != nil:
		b.blank()
		b.line("client")
		b.line("nobind")
		if cfg.ReplaceDefaultRoute {
			b.line("redirect-gateway def1")
		}
	case acc.SiteToSite != nil:
		b.blank()
		renderSiteToSite(&b, cfg, acc.SiteToSite)
	case acc.Server != nil:
		b.blank()
		renderServer(&b, cfg, acc.Server, paths)
	}

	renderCredentials(&b, cfg, files)

	if cfg.Encryption != nil {
		b.blank()
		if cfg.Encryption.Cipher != "" {
			b.linef("cipher %s", cipherName(cfg.Encryption.Cipher))
		}
		if len(cfg.Encryption.NCPCiphers) > 0 {
			mapped := make([]string, len(cfg.Encryption.NCPCiphers))
			for i, token := range cfg.Encryption.NCPCiphers {
				mapped[i] = cipherName(token)
			}
			b.linef("data-ciphers %s", strings.Join(mapped, ":"))
		}
	}

	if cfg.Authentication != nil {
		b.blank()
		b.linef("auth-user-pass %s", paths.AuthUserPass(cfg.Ifname))
		b.line("auth-retry nointeract")
	}

	if len(cfg.OpenVPNOptions) > 0 {
		b.blank()
		b.line("# Raw pass-through options")
		for _, option := range cfg.OpenVPNOptions {
			b.line(option)
		}
	}

	return b.String()
}

func renderSiteToSite(b *configBuilder, cfg *InterfaceConfig, view *SiteToSiteView) {
	// Tap endpoints address the local segment, so the mask form needs no
	// remote peer address.
	if view.LocalV4.IsValid() {
		switch {
		case cfg.DeviceType == DeviceTap && view.SubnetMask != "":
			b.linef("ifconfig %s %s", view.LocalV4, view.SubnetMask)
		case view.RemoteV4.IsValid():
			b.linef("ifconfig %s %s", view.LocalV4, view.RemoteV4)
		}
	}
	if view.LocalV6.IsValid() && view.RemoteV6.IsValid() {
		b.linef("ifconfig-ipv6 %s/64 %s", view.LocalV6, view.RemoteV6)
	}
	if cfg.TLS != nil {
		switch cfg.TLS.Role {
		case RoleActive:
			b.line("tls-client")
		case RolePassive:
			b.line("tls-server")
		}
	}
	if cfg.ReplaceDefaultRoute {
		b.line("redirect-gateway def1")
	}
}

func renderServer(b *configBuilder, cfg *InterfaceConfig, view *ServerView, paths Paths) {
	b.line("mode server")
	b.line("tls-server")
	b.line("topology subnet")
	b.line("keepalive 10 60")

	if view.SubnetV4.IsValid() {
		b.linef("server %s %s", view.SubnetV4.Addr(), v4Netmask(view.SubnetV4))
	}
	if view.SubnetV6.IsValid() {
		b.linef("server-ipv6 %s", view.SubnetV6)
	}
	if view.PoolV4.IsValid() {
		b.linef("ifconfig-pool %s %s %s", view.PoolV4.From(), view.PoolV4.To(), v4Netmask(view.SubnetV4))
	}

	server := cfg.Server
	if server.ClientIPv6Pool != nil && view.SubnetV6.IsValid() {
		b.linef("ifconfig-ipv6-pool %s", server.ClientIPv6Pool.Base)
	}
	b.linef("client-config-dir %s", paths.CCDDir(cfg.Ifname))
	if server.RejectUnconfiguredClients {
		b.line("ccd-exclusive")
	}
	if server.MaxConnections > 0 {
		b.linef("max-clients %d", server.MaxConnections)
	}
	if server.DomainName != "" {
		b.linef(`push "dhcp-option DOMAIN %s"`, server.DomainName)
	}
	for _, ns := range server.NameServer {
		b.linef(`push "dhcp-option DNS %s"`, ns)
	}
	for _, route := range server.PushRoute {
		renderPushRoute(b, route)
	}
}

func renderCredentials(b *configBuilder, cfg *InterfaceConfig, files artifactSet) {
	if len(files) == 0 {
		return
	}
	b.blank()
	if path, ok := files[ArtifactSharedKey]; ok {
		b.linef("secret %s", path)
	}
	if path, ok := files[ArtifactCA]; ok {
		b.linef("ca %s", path)
	}
	if path, ok := files[ArtifactCRL]; ok {
		b.linef("crl-verify %s", path)
	}
	if path, ok := files[ArtifactCert]; ok {
		b.linef("cert %s", path)
	}
	if path, ok := files[ArtifactCertKey]; ok {
		b.linef("key %s", path)
	}
	if path, ok := files[ArtifactDH]; ok {
		b.linef("dh %s", path)
	}
	if path, ok := files[ArtifactAuthKey]; ok {
		b.linef("tls-auth %s", path)
	}
	if path, ok := files[ArtifactCryptKey]; ok {
		b.linef("tls-crypt %s", path)
	}
}

// renderClientConfig serializes one per-client ccd fragment, deriving the
// pushed netmask from the server subnets injected by the generator.
func renderClientConfig(client ClientConfig, view *ServerView) string {
	var b configBuilder
	b.linef("# OpenVPN client configuration for %s", client.Name)
	if client.Disable {
		b.line("disable")
	}
	if len(client.IP) == 1 && view.SubnetV4.IsValid() {
		b.linef("ifconfig-push %s %s", client.IP[0], v4Netmask(view.SubnetV4))
	}
	if len(client.IPv6IP) == 1 {
		bits := 64
		if view.SubnetV6.IsValid() {
			bits = view.SubnetV6.Bits()
		}
		b.linef("ifconfig-ipv6-push %s/%d", client.IPv6IP[0], bits)
	}
	for _, subnet := range client.Subnet {
		if prefix, err := netip.ParsePrefix(subnet); err == nil {
			if prefix.Addr().Is4() {
				b.linef("iroute %s %s", prefix.Masked().Addr(), v4Netmask(prefix))
			} else {
				b.linef("iroute-ipv6 %s", prefix.Masked())
			}
		}
	}
	for _, route := range client.PushRoute {
		renderPushRoute(&b, route)
	}
	return b.String()
}

// renderAuthUserPass serializes the username/password credentials file.
func renderAuthUserPass(auth *Authentication) string {
	return auth.Username + "\n" + auth.Password + "\n"
}

func renderPushRoute(b *configBuilder, route string) {
	prefix, err := netip.ParsePrefix(route)
	if err != nil {
		b.linef(`push "route %s"`, route)
		return
	}
	if prefix.Addr().Is4() {
		b.linef(`push "route %s %s"`, prefix.Masked().Addr(), v4Netmask(prefix))
	} else {
		b.linef(`push "route-ipv6 %s"`, prefix.Masked())
	}
}

func v4Netmask(prefix netip.Prefix) string {
	mask := net.CIDRMask(prefix.Bits(), 32)
	return net.IP(mask).String()
}

// configBuilder accumulates directive lines.
type configBuilder struct {
	lines []string
}

func (b *configBuilder) line(s string) {
	b.lines = append(b.lines, s)
}

func (b *configBuilder) linef(format string, args ...any) {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

func (b *configBuilder) blank() {
	b.lines = append(b.lines, "")
}

func (b *configBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}
