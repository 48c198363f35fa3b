package openvpn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ServiceManager is the slice of the service supervisor the lifecycle
// applier needs.
type ServiceManager interface {
	Start(unitName string) error
	Stop(unitName string) error
}

// NetworkInterface drives the runtime state of the tunnel interface object.
type NetworkInterface interface {
	Exists(name string) bool
	Remove(name string) error
	Update(acc *Accepted) error
}

// Applier reconciles the running daemon instance and the network-interface
// object with an accepted configuration. Failures surface to the caller
// as-is; no internal retries.
type Applier struct {
	Paths   Paths
	Service ServiceManager
	Net     NetworkInterface
}

// Apply stops any running instance, then either cleans up a
// deleted/disabled interface or starts the daemon and pushes the validated
// runtime state into the interface object.
func (a *Applier) Apply(acc *Accepted) error {
	cfg := acc.Config
	unit := ServiceUnit(cfg.Ifname)

	// Stopping is idempotent; the fresh start below picks up the
	// regenerated configuration.
	if err := a.Service.Stop(unit); err != nil {
		return fmt.Errorf("stop %s: %w", unit, err)
	}

	if cfg.Deleted || cfg.Disable {
		matches, err := filepath.Glob(a.Paths.RuntimeGlob(cfg.Ifname))
		if err != nil {
			return err
		}
		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
		if a.Net != nil && a.Net.Exists(cfg.Ifname) {
			if err := a.Net.Remove(cfg.Ifname); err != nil {
				return fmt.Errorf("remove interface %s: %w", cfg.Ifname, err)
			}
		}
		return nil
	}

	if err := a.Service.Start(unit); err != nil {
		return fmt.Errorf("start %s: %w", unit, err)
	}
	if a.Net != nil {
		if err := a.Net.Update(acc); err != nil {
			return fmt.Errorf("update interface %s: %w", cfg.Ifname, err)
		}
	}
	return nil
}

// ServiceUnit returns the systemd instance unit name for an interface.
func ServiceUnit(ifname string) string {
	return "openvpn@" + ifname + ".service"
}
