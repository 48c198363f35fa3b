package openvpn

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"net/netip"
	"slices"

	"go4.org/netipx"
)

// ErrRejected marks every violated configuration constraint. Rejections
// carry a field-scoped explanation and happen before any artifact is
// written or any process is touched.
var ErrRejected = errors.New("configuration rejected")

func rejectf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// GCM data-channel ciphers, unusable with a pre-shared static key.
var gcmCiphers = map[string]bool{
	"aes128gcm": true,
	"aes192gcm": true,
	"aes256gcm": true,
}

// Engine validates one interface configuration. Constraint groups run in a
// fixed order and stop at the first violation, which keeps rejection
// messages deterministic; the groups themselves are independent.
type Engine struct {
	// AddrAssigned reports whether an IP address is currently assigned to
	// a local network interface. nil skips the local-host reachability
	// check.
	AddrAssigned func(addr string) bool
	// VerifyVRF checks the VRF assignment. It always runs last; nil
	// accepts any assignment.
	VerifyVRF func(cfg *InterfaceConfig) error
	// OTP, when set, reconciles the per-interface secret database while a
	// 2FA-enabled server is validated.
	OTP *TOTPStore
}

// Validate checks cfg against every constraint group and returns the typed
// accepted view, or the first violation wrapped in ErrRejected.
func (e *Engine) Validate(cfg *InterfaceConfig) (*Accepted, error) {
	acc := &Accepted{Config: cfg}

	if cfg.Deleted {
		if cfg.IsBridgeMember {
			return nil, rejectf("cannot delete interface %s as it is a member of a bridge", cfg.Ifname)
		}
		return acc, nil
	}

	if cfg.Mode == "" {
		return nil, rejectf("must specify OpenVPN operation mode")
	}
	switch cfg.Mode {
	case ModeClient, ModeServer, ModeSiteToSite:
	default:
		return nil, rejectf("unknown OpenVPN operation mode %q", cfg.Mode)
	}

	groups := []func(*InterfaceConfig, *Accepted) error{
		e.checkClientMode,
		e.checkSiteToSite,
		e.checkServerAddressExclusivity,
		e.checkServerMode,
		e.checkNonServerOptions,
		e.checkLocalHost,
		e.checkTransport,
		e.checkSharedSecretCipher,
		e.checkTLS,
		e.checkCipherSanity,
		e.checkPKI,
		e.checkAuthentication,
		e.checkVRF,
	}
	for _, group := range groups {
		if err := group(cfg, acc); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (e *Engine) checkClientMode(cfg *InterfaceConfig, acc *Accepted) error {
	if cfg.Mode != ModeClient {
		return nil
	}
	if cfg.LocalPort != 0 {
		return rejectf(`cannot specify "local-port" in client mode`)
	}
	if cfg.LocalHost != "" {
		return rejectf(`cannot specify "local-host" in client mode`)
	}
	if len(cfg.RemoteHost) == 0 {
		return rejectf(`must specify "remote-host" in client mode`)
	}
	if cfg.Protocol == ProtocolTCPPassive {
		return rejectf(`protocol "tcp-passive" is not valid in client mode`)
	}
	if cfg.TLS != nil && cfg.TLS.DHParams != "" {
		return rejectf(`cannot specify "tls dh-params" in client mode`)
	}
	acc.Client = &ClientView{RemoteHosts: cfg.RemoteHost}
	return nil
}

func (e *Engine) checkSiteToSite(cfg *InterfaceConfig, acc *Accepted) error {
	if cfg.Mode != ModeSiteToSite {
		return nil
	}
	if len(cfg.LocalAddress) == 0 && !cfg.IsBridgeMember {
		return rejectf(`must specify "local-address" or add interface to bridge`)
	}

	view := &SiteToSiteView{}
	for _, local := range cfg.LocalAddress {
		addr, err := netip.ParseAddr(local.Address)
		if err != nil {
			return rejectf("invalid local-address %q", local.Address)
		}
		if addr.Is4() {
			if view.LocalV4.IsValid() {
				return rejectf("only one IPv4 local-address can be specified")
			}
			view.LocalV4 = addr
			view.SubnetMask = local.SubnetMask
		} else {
			if view.LocalV6.IsValid() {
				return rejectf("only one IPv6 local-address can be specified")
			}
			view.LocalV6 = addr
		}
	}

	if cfg.DeviceType == DeviceTun && len(cfg.RemoteAddress) == 0 {
		return rejectf(`must specify "remote-address"`)
	}

	if len(cfg.RemoteAddress) > 0 {
		for _, remote := range cfg.RemoteAddress {
			addr, err := netip.ParseAddr(remote)
			if err != nil {
				return rejectf("invalid remote-address %q", remote)
			}
			if addr.Is4() {
				if view.RemoteV4.IsValid() {
					return rejectf("only one IPv4 remote-address can be specified")
				}
				view.RemoteV4 = addr
			} else {
				if view.RemoteV6.IsValid() {
					return rejectf("only one IPv6 remote-address can be specified")
				}
				view.RemoteV6 = addr
			}
		}
		if len(cfg.LocalAddress) == 0 {
			return rejectf(`"remote-address" requires "local-address"`)
		}
		if view.LocalV4.IsValid() && !view.RemoteV4.IsValid() {
			return rejectf(`IPv4 "local-address" requires IPv4 "remote-address"`)
		}
		if view.RemoteV4.IsValid() && !view.LocalV4.IsValid() {
			return rejectf(`IPv4 "remote-address" requires IPv4 "local-address"`)
		}
		if view.LocalV6.IsValid() && !view.RemoteV6.IsValid() {
			return rejectf(`IPv6 "local-address" requires IPv6 "remote-address"`)
		}
		if view.RemoteV6.IsValid() && !view.LocalV6.IsValid() {
			return rejectf(`IPv6 "remote-address" requires IPv6 "local-address"`)
		}
		if (view.LocalV4.IsValid() && view.LocalV4 == view.RemoteV4) ||
			(view.LocalV6.IsValid() && view.LocalV6 == view.RemoteV6) {
			return rejectf(`"local-address" and "remote-address" cannot be the same`)
		}
		for _, local := range cfg.LocalAddress {
			if cfg.LocalHost != "" && cfg.LocalHost == local.Address {
				return rejectf(`"local-address" cannot be the same as "local-host"`)
			}
		}
		for _, host := range cfg.RemoteHost {
			if slices.Contains(cfg.RemoteAddress, host) {
				return rejectf(`"remote-address" and "remote-host" cannot be the same`)
			}
		}
	}

	if cfg.DeviceType == DeviceTap && view.LocalV4.IsValid() && view.SubnetMask == "" {
		return rejectf(`must specify IPv4 "subnet-mask" for local-address`)
	}

	if cfg.Encryption != nil && len(cfg.Encryption.NCPCiphers) > 0 {
		return rejectf("NCP ciphers can only be used in client or server mode")
	}

	acc.SiteToSite = view
	return nil
}

// Local and remote tunnel addresses belong to site-to-site setups only.
func (e *Engine) checkServerAddressExclusivity(cfg *InterfaceConfig, acc *Accepted) error {
	if cfg.Mode != ModeServer {
		return nil
	}
	if len(cfg.LocalAddress) > 0 || len(cfg.RemoteAddress) > 0 {
		return rejectf(`cannot specify "local-address" or "remote-address" in client-server or bridge mode`)
	}
	return nil
}

func (e *Engine) checkServerMode(cfg *InterfaceConfig, acc *Accepted) error {
	if cfg.Mode != ModeServer {
		return nil
	}
	if cfg.Protocol == ProtocolTCPActive {
		return rejectf(`protocol "tcp-active" is not valid in server mode`)
	}
	if cfg.RemotePort != 0 {
		return rejectf(`cannot specify "remote-port" in server mode`)
	}
	if len(cfg.RemoteHost) > 0 {
		return rejectf(`cannot specify "remote-host" in server mode`)
	}

	view := &ServerView{}
	server := cfg.Server

	if server != nil && len(server.Subnet) > 0 {
		for _, raw := range server.Subnet {
			subnet, err := netip.ParsePrefix(raw)
			if err != nil {
				return rejectf("invalid server subnet %q", raw)
			}
			subnet = subnet.Masked()
			if subnet.Addr().Is4() {
				if view.SubnetV4.IsValid() {
					return rejectf("cannot specify more than 1 IPv4 server subnet")
				}
				switch {
				case cfg.DeviceType == DeviceTun && subnet.Bits() > 29:
					return rejectf(`server subnets smaller than /29 with device type "tun" are not supported`)
				case cfg.DeviceType == DeviceTap && subnet.Bits() > 30:
					return rejectf(`server subnets smaller than /30 with device type "tap" are not supported`)
				}
				view.SubnetV4 = subnet
			} else {
				if view.SubnetV6.IsValid() {
					return rejectf("cannot specify more than 1 IPv6 server subnet")
				}
				view.SubnetV6 = subnet
			}
		}
		if view.SubnetV6.IsValid() && !view.SubnetV4.IsValid() {
			return rejectf("IPv6 server requires an IPv4 server subnet")
		}
	} else if !cfg.IsBridgeMember {
		return rejectf(`must specify "server subnet" or add interface to bridge in server mode`)
	}

	if server != nil {
		if err := e.checkServerClients(cfg, server, view); err != nil {
			return err
		}
		if err := e.checkServerPools(cfg, server, view, acc); err != nil {
			return err
		}
		if server.TwoFactor != nil && server.TwoFactor.TOTP && e.OTP != nil {
			names := make([]string, 0, len(server.Client))
			for _, client := range server.Client {
				names = append(names, client.Name)
			}
			if err := e.OTP.Reconcile(cfg.Ifname, names); err != nil {
				return fmt.Errorf("reconcile otp secrets for %s: %w", cfg.Ifname, err)
			}
		}
		view.Clients = server.Client
	}

	acc.Server = view
	return nil
}

func (e *Engine) checkServerClients(cfg *InterfaceConfig, server *ServerOptions, view *ServerView) error {
	seen := make(map[string]bool, len(server.Client))
	for _, client := range server.Client {
		if client.Name == "" {
			return rejectf("server client requires a name")
		}
		if seen[client.Name] {
			return rejectf("server client %q is configured more than once", client.Name)
		}
		seen[client.Name] = true
		if len(client.IP) > 1 || len(client.IPv6IP) > 1 {
			return rejectf("server client %q: cannot specify more than 1 IPv4 and 1 IPv6 IP", client.Name)
		}
		if len(client.IP) == 1 {
			addr, err := netip.ParseAddr(client.IP[0])
			if err != nil || !addr.Is4() {
				return rejectf("server client %q: invalid IP %q", client.Name, client.IP[0])
			}
			if view.SubnetV4.IsValid() && !view.SubnetV4.Contains(addr) {
				return rejectf("client %q IP %s not in server subnet %s", client.Name, addr, view.SubnetV4)
			}
		}
		if len(client.IPv6IP) == 1 {
			addr, err := netip.ParseAddr(client.IPv6IP[0])
			if err != nil || !addr.Is6() {
				return rejectf("server client %q: invalid IPv6 IP %q", client.Name, client.IPv6IP[0])
			}
		}
	}
	return nil
}

func (e *Engine) checkServerPools(cfg *InterfaceConfig, server *ServerOptions, view *ServerView, acc *Accepted) error {
	var poolSizeV4 uint64
	if pool := server.ClientIPPool; pool != nil {
		if pool.Start == "" || pool.Stop == "" {
			return rejectf("server client-ip-pool requires both start and stop addresses")
		}
		start, err := netip.ParseAddr(pool.Start)
		if err != nil || !start.Is4() {
			return rejectf("invalid client-ip-pool start address %q", pool.Start)
		}
		stop, err := netip.ParseAddr(pool.Stop)
		if err != nil || !stop.Is4() {
			return rejectf("invalid client-ip-pool stop address %q", pool.Stop)
		}
		if start.Compare(stop) > 0 {
			return rejectf("server client-ip-pool start address %s is larger than stop address %s", start, stop)
		}
		poolSizeV4 = uint64(v4ToUint32(stop) - v4ToUint32(start))
		if poolSizeV4 >= 65536 {
			return rejectf("server client-ip-pool is too large [%s -> %s = %d], maximum is 65536 addresses",
				start, stop, poolSizeV4)
		}
		view.PoolV4 = netipx.IPRangeFrom(start, stop)
		for _, client := range server.Client {
			if len(client.IP) != 1 {
				continue
			}
			if addr, err := netip.ParseAddr(client.IP[0]); err == nil && view.PoolV4.Contains(addr) {
				acc.Warnings = append(acc.Warnings,
					fmt.Sprintf("client %q IP %s is in server IP pool, it is not reserved for this client", client.Name, addr))
			}
		}
	}

	// The IPv6 pool only takes effect alongside an IPv6 server subnet.
	if server.ClientIPv6Pool == nil || !view.SubnetV6.IsValid() {
		return nil
	}
	if server.ClientIPPool == nil || !view.PoolV4.IsValid() {
		return rejectf("IPv6 server pool requires an IPv4 server pool")
	}
	base, err := netip.ParsePrefix(server.ClientIPv6Pool.Base)
	if err != nil || !base.Addr().Is6() {
		return rejectf("invalid client-ipv6-pool base %q", server.ClientIPv6Pool.Base)
	}
	if base.Bits() >= 112 {
		return rejectf("IPv6 server pool must be larger than /112")
	}

	poolStart := base.Addr()
	poolStop := netipx.RangeOfPrefix(base.Masked()).To()
	poolSizeV6 := big.NewInt(65536)
	if base.Bits() > 96 {
		poolSizeV6 = new(big.Int).Sub(addrToBig(poolStop), addrToBig(poolStart))
	}
	if poolSizeV6.Cmp(new(big.Int).SetUint64(poolSizeV4)) < 0 {
		return rejectf("IPv6 server pool must be at least as large as the IPv4 pool (current sizes: IPv6=%s IPv4=%d)",
			poolSizeV6, poolSizeV4)
	}

	poolV6 := netipx.IPRangeFrom(poolStart, poolStop)
	for _, client := range server.Client {
		if len(client.IPv6IP) != 1 {
			continue
		}
		if addr, err := netip.ParseAddr(client.IPv6IP[0]); err == nil && poolV6.Contains(addr) {
			acc.Warnings = append(acc.Warnings,
				fmt.Sprintf("client %q IP %s is in server IP pool, it is not reserved for this client", client.Name, addr))
		}
	}
	return nil
}

func (e *Engine) checkNonServerOptions(cfg *InterfaceConfig, acc *Accepted) error {
	if cfg.Mode == ModeServer {
		return nil
	}
	if cfg.Server != nil && cfg.Server.RejectUnconfiguredClients {
		return rejectf("option reject-unconfigured-clients only supported in server mode")
	}
	if cfg.ReplaceDefaultRoute && len(cfg.RemoteHost) == 0 {
		return rejectf(`cannot set "replace-default-route" without "remote-host"`)
	}
	return nil
}

func (e *Engine) checkLocalHost(cfg *InterfaceConfig, acc *Accepted) error {
	if cfg.LocalHost == "" || e.AddrAssigned == nil {
		return nil
	}
	if !e.AddrAssigned(cfg.LocalHost) {
		return rejectf("local-host IP address %q not assigned to any interface", cfg.LocalHost)
	}
	return nil
}

func (e *Engine) checkTransport(cfg *InterfaceConfig, acc *Accepted) error {
	if cfg.Protocol != ProtocolTCPActive {
		return nil
	}
	if cfg.LocalPort != 0 {
		return rejectf(`cannot specify "local-port" with "tcp-active"`)
	}
	if len(cfg.RemoteHost) == 0 {
		return rejectf(`must specify "remote-host" with "tcp-active"`)
	}
	return nil
}

func (e *Engine) checkSharedSecretCipher(cfg *InterfaceConfig, acc *Accepted) error {
	if cfg.SharedSecretKey == "" || cfg.Encryption == nil {
		return nil
	}
	if gcmCiphers[cfg.Encryption.Cipher] {
		return rejectf("GCM encryption with shared-secret-key not supported")
	}
	return nil
}

func (e *Engine) checkTLS(cfg *InterfaceConfig, acc *Accepted) error {
	tls := cfg.TLS
	if tls == nil {
		return nil
	}
	if tls.AuthKey != "" && tls.CryptKey != "" {
		return rejectf("TLS auth and crypt keys are mutually exclusive")
	}
	if tls.Role != "" {
		if (cfg.Mode == ModeClient || cfg.Mode == ModeServer) && tls.AuthKey == "" {
			return rejectf(`cannot specify "tls role" in client-server mode`)
		}
		switch tls.Role {
		case RoleActive:
			if cfg.Protocol == ProtocolTCPPassive {
				return rejectf(`cannot specify "tcp-passive" when "tls role" is "active"`)
			}
			if tls.DHParams != "" {
				return rejectf(`cannot specify "tls dh-params" when "tls role" is "active"`)
			}
		case RolePassive:
			if cfg.Protocol == ProtocolTCPActive {
				return rejectf(`cannot specify "tcp-active" when "tls role" is "passive"`)
			}
			if tls.DHParams == "" {
				return rejectf(`must specify "tls dh-params" when "tls role" is "passive"`)
			}
		default:
			return rejectf(`"tls role" must be "active" or "passive"`)
		}
	}
	if tls.Certificate != "" && tls.DHParams != "" && isECPrivateKey(cfg.PKI, tls.Certificate) {
		acc.Warnings = append(acc.Warnings,
			"using dh-params and EC keys simultaneously will lead to DH ciphers being used instead of ECDH")
	}
	return nil
}

func (e *Engine) checkCipherSanity(cfg *InterfaceConfig, acc *Accepted) error {
	if cfg.Encryption != nil && cfg.Encryption.Cipher == "none" {
		acc.Warnings = append(acc.Warnings,
			`"encryption none" was specified`,
			"no encryption will be performed and data is transmitted in plain text over the network")
	}
	return nil
}

func (e *Engine) checkPKI(cfg *InterfaceConfig, acc *Accepted) error {
	return verifyPKI(cfg)
}

func (e *Engine) checkAuthentication(cfg *InterfaceConfig, acc *Accepted) error {
	auth := cfg.Authentication
	if auth == nil {
		return nil
	}
	if auth.Username != "" && auth.Password == "" {
		return rejectf("password for authentication is missing")
	}
	if auth.Password != "" && auth.Username == "" {
		return rejectf("username for authentication is missing")
	}
	return nil
}

func (e *Engine) checkVRF(cfg *InterfaceConfig, acc *Accepted) error {
	if e.VerifyVRF == nil {
		return nil
	}
	return e.VerifyVRF(cfg)
}

func v4ToUint32(addr netip.Addr) uint32 {
	raw := addr.As4()
	return binary.BigEndian.Uint32(raw[:])
}

func addrToBig(addr netip.Addr) *big.Int {
	raw := addr.As16()
	return new(big.Int).SetBytes(raw[:])
}
