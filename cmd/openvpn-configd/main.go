package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"openvpn-configd/internal/config"
	"openvpn-configd/internal/netif"
	"openvpn-configd/internal/openvpn"
	"openvpn-configd/internal/systemd"
	"openvpn-configd/internal/util"
)

func main() {
	configPath := flag.String("config", "", "path to the normalized interface record (JSON)")
	runDir := flag.String("run-dir", "", "runtime directory for generated artifacts")
	authDir := flag.String("auth-dir", "", "directory for persistent OTP secret databases")
	linkWait := flag.Duration("link-wait", 3*time.Second, "how long to wait for the tunnel device after start")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("missing required -config flag")
	}

	paths := openvpn.DefaultPaths()
	if *runDir != "" {
		paths.RunDir = *runDir
	}
	if *authDir != "" {
		paths.AuthDir = *authDir
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load interface record: %v", err)
	}

	chown, err := openvpn.ServiceOwner()
	if err != nil {
		log.Printf("warning: service account lookup failed, keeping default ownership: %v", err)
		chown = nil
	}

	engine := &openvpn.Engine{
		AddrAssigned: util.IsAddrAssigned,
		OTP:          &openvpn.TOTPStore{Paths: paths, Chown: chown},
	}
	acc, err := engine.Validate(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, warning := range acc.Warnings {
		fmt.Printf("Warning: %s\n", warning)
	}

	generator := &openvpn.Generator{Paths: paths, Chown: chown}
	if _, err := generator.Generate(acc); err != nil {
		log.Fatalf("failed to generate artifacts for %s: %v", cfg.Ifname, err)
	}

	applier := &openvpn.Applier{
		Paths:   paths,
		Service: systemd.NewManager(),
		Net:     netif.Netlink{WaitTimeout: *linkWait},
	}
	if err := applier.Apply(acc); err != nil {
		log.Fatalf("failed to apply %s: %v", cfg.Ifname, err)
	}
}
