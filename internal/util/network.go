package util

import (
	"net"
	"sort"
)

// InterfaceInfo summarises a network interface and its addresses.
type InterfaceInfo struct {
	Name      string
	Addresses []string
}

// InterfacesWithAddrs returns all interfaces along with their addresses.
func InterfacesWithAddrs() ([]InterfaceInfo, error) {
	list, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	infos := make([]InterfaceInfo, 0, len(list))
	for _, iface := range list {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		addresses := make([]string, 0, len(addrs))
		for _, addr := range addrs {
			addresses = append(addresses, addr.String())
		}
		infos = append(infos, InterfaceInfo{Name: iface.Name, Addresses: addresses})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// IsAddrAssigned reports whether the IP address is currently assigned to
// any local network interface.
func IsAddrAssigned(addr string) bool {
	want := net.ParseIP(addr)
	if want == nil {
		return false
	}
	infos, err := InterfacesWithAddrs()
	if err != nil {
		return false
	}
	for _, info := range infos {
		for _, assigned := range info.Addresses {
			ip, _, err := net.ParseCIDR(assigned)
			if err != nil {
				ip = net.ParseIP(assigned)
			}
			if ip != nil && ip.Equal(want) {
				return true
			}
		}
	}
	return false
}
