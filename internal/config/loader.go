// Package config loads the normalized per-interface configuration record
// produced by the configuration tree loader. The record arrives fully
// shape-normalized; this package only deserializes it, fills protocol and
// device-type defaults, and hands the typed record to the validation
// engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"openvpn-configd/internal/openvpn"
)

// Load reads one normalized interface record, with its PKI snapshot
// attached, from a JSON document.
func Load(path string) (*openvpn.InterfaceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse deserializes a normalized interface record.
func Parse(data []byte) (*openvpn.InterfaceConfig, error) {
	var cfg openvpn.InterfaceConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse interface record: %w", err)
	}
	if cfg.Ifname == "" {
		return nil, fmt.Errorf("interface record has no ifname")
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *openvpn.InterfaceConfig) {
	if cfg.Protocol == "" {
		cfg.Protocol = openvpn.ProtocolUDP
	}
	if cfg.DeviceType == "" {
		cfg.DeviceType = openvpn.DeviceTun
	}
	// A deleted interface carries no PKI view; drop a stale one so the
	// deletion short-circuit never consults it.
	if cfg.Deleted {
		cfg.PKI = nil
	}
}
