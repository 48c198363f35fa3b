package netif

import (
	"fmt"
	"net"
	"time"

	"github.com/vishvananda/netlink"

	"openvpn-configd/internal/openvpn"
)

// Netlink applies runtime state to tunnel interfaces through the kernel
// netlink API. The daemon creates the tun/tap device itself on startup, so
// Update waits briefly for the link to appear before configuring it.
type Netlink struct {
	// WaitTimeout bounds how long Update waits for the daemon to create
	// the device. Zero means a single immediate lookup.
	WaitTimeout time.Duration
}

// Exists reports whether the named interface is present on the system.
func (n Netlink) Exists(name string) bool {
	_, err := netlink.LinkByName(name)
	return err == nil
}

// Remove tears the named interface down. Removing an absent interface is a
// no-op.
func (n Netlink) Remove(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil
	}
	return netlink.LinkDel(link)
}

// Update pushes addressing, MTU and oper-state from the accepted
// configuration into the live interface.
func (n Netlink) Update(acc *openvpn.Accepted) error {
	cfg := acc.Config
	link, err := n.waitForLink(cfg.Ifname)
	if err != nil {
		return err
	}
	if cfg.MTU > 0 {
		if err := netlink.LinkSetMTU(link, int(cfg.MTU)); err != nil {
			return fmt.Errorf("set mtu on %s: %w", cfg.Ifname, err)
		}
	}
	for _, local := range cfg.LocalAddress {
		addr, err := parseAddress(local)
		if err != nil {
			return err
		}
		if err := netlink.AddrReplace(link, addr); err != nil {
			return fmt.Errorf("assign %s to %s: %w", addr, cfg.Ifname, err)
		}
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("set %s up: %w", cfg.Ifname, err)
	}
	return nil
}

func (n Netlink) waitForLink(name string) (netlink.Link, error) {
	deadline := time.Now().Add(n.WaitTimeout)
	for {
		link, err := netlink.LinkByName(name)
		if err == nil {
			return link, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("interface %s not present: %w", name, err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func parseAddress(local openvpn.LocalAddress) (*netlink.Addr, error) {
	ip := net.ParseIP(local.Address)
	if ip == nil {
		return nil, fmt.Errorf("invalid address %q", local.Address)
	}
	var mask net.IPMask
	switch {
	case local.SubnetMask != "":
		maskIP := net.ParseIP(local.SubnetMask)
		if maskIP == nil || maskIP.To4() == nil {
			return nil, fmt.Errorf("invalid subnet-mask %q", local.SubnetMask)
		}
		mask = net.IPMask(maskIP.To4())
	case ip.To4() != nil:
		mask = net.CIDRMask(32, 32)
	default:
		mask = net.CIDRMask(128, 128)
	}
	return &netlink.Addr{IPNet: &net.IPNet{IP: ip, Mask: mask}}, nil
}
