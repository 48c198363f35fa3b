package openvpn

import (
	"os"
	"os/user"
	"strconv"
)

// Service account owning generated runtime files.
const (
	serviceUser  = "openvpn"
	serviceGroup = "openvpn"
)

// ChownFunc assigns service-account ownership to a generated path. A nil
// ChownFunc leaves ownership untouched, which is what unprivileged test
// runs need.
type ChownFunc func(path string) error

// ServiceOwner resolves the openvpn service account and returns a ChownFunc
// for it.
func ServiceOwner() (ChownFunc, error) {
	u, err := user.Lookup(serviceUser)
	if err != nil {
		return nil, err
	}
	g, err := user.LookupGroup(serviceGroup)
	if err != nil {
		return nil, err
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return nil, err
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return nil, err
	}
	return func(path string) error {
		return os.Chown(path, uid, gid)
	}, nil
}
