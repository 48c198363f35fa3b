package openvpn

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Generator materializes the runtime artifacts of an accepted
// configuration. Regeneration is idempotent: every artifact is fully
// rewritten, so a failed run heals on retry without rollback logic.
type Generator struct {
	Paths Paths
	Chown ChownFunc
}

// Generate writes the daemon config, per-client fragments and credential
// files for acc and returns the generated paths. The caller must only pass
// configurations accepted by the validation engine.
func (g *Generator) Generate(acc *Accepted) ([]string, error) {
	cfg := acc.Config
	ccdDir := g.Paths.CCDDir(cfg.Ifname)

	// Removed clients must not leave stale fragments behind, so the whole
	// directory is purged and rebuilt on demand.
	if err := os.RemoveAll(ccdDir); err != nil {
		return nil, err
	}

	if cfg.Deleted || cfg.Disable {
		return nil, nil
	}

	if err := os.MkdirAll(ccdDir, 0o755); err != nil {
		return nil, err
	}
	if err := g.chown(ccdDir); err != nil {
		return nil, err
	}

	credentials, files, err := g.generatePKIFiles(cfg)
	if err != nil {
		return nil, err
	}
	generated := append([]string{}, credentials...)

	authPath := g.Paths.AuthUserPass(cfg.Ifname)
	if cfg.Authentication != nil {
		if err := g.writeOwned(authPath, []byte(renderAuthUserPass(cfg.Authentication)), 0o600); err != nil {
			return nil, err
		}
		credentials = append(credentials, authPath)
		generated = append(generated, authPath)
	} else if err := os.Remove(authPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if acc.Server != nil {
		for _, client := range acc.Server.Clients {
			path := g.Paths.ClientConfig(cfg.Ifname, client.Name)
			if err := g.writeOwned(path, []byte(renderClientConfig(client, acc.Server)), 0o644); err != nil {
				return nil, err
			}
			generated = append(generated, path)
		}
	}

	// Raw pass-through parameters arrive with escaped quote markers so the
	// configuration tree never mangles them; restore literal quotes here.
	content := renderDaemonConfig(acc, files, g.Paths)
	content = strings.ReplaceAll(content, "&quot;", `"`)
	confPath := g.Paths.Config(cfg.Ifname)
	if err := g.writeOwned(confPath, []byte(content), 0o644); err != nil {
		return nil, err
	}
	generated = append(generated, confPath)

	for _, path := range credentials {
		if err := os.Chmod(path, 0o600); err != nil {
			return nil, err
		}
	}
	return generated, nil
}

// generatePKIFiles copies the bound credential material out of the snapshot
// into deterministically named per-interface files. It returns the paths
// needing permission tightening and the set of materialized artifacts for
// the config renderer.
func (g *Generator) generatePKIFiles(cfg *InterfaceConfig) ([]string, artifactSet, error) {
	files := make(artifactSet)
	pki := cfg.PKI
	if pki.Empty() {
		return nil, files, nil
	}

	var credentials []string
	write := func(kind ArtifactKind, content string) error {
		path := g.Paths.Artifact(cfg.Ifname, kind)
		if err := g.writeOwned(path, []byte(content), 0o600); err != nil {
			return err
		}
		files[kind] = path
		credentials = append(credentials, path)
		return nil
	}

	if cfg.SharedSecretKey != "" {
		entry := pki.OpenVPN.SharedSecret[cfg.SharedSecretKey]
		content, err := wrapOpenVPNKey(entry.Key)
		if err != nil {
			return nil, nil, fmt.Errorf("shared-secret %s: %w", cfg.SharedSecretKey, err)
		}
		if err := write(ArtifactSharedKey, content); err != nil {
			return nil, nil, err
		}
	}

	tls := cfg.TLS
	if tls == nil {
		return credentials, files, nil
	}

	if tls.CACertificate != "" {
		ca := pki.CA[tls.CACertificate]
		if ca.Certificate != "" {
			content, err := wrapCertificate(ca.Certificate)
			if err != nil {
				return nil, nil, fmt.Errorf("ca-certificate %s: %w", tls.CACertificate, err)
			}
			if err := write(ArtifactCA, content); err != nil {
				return nil, nil, err
			}
		}
		if len(ca.CRL) > 0 {
			var merged strings.Builder
			for _, crl := range ca.CRL {
				content, err := wrapCRL(crl)
				if err != nil {
					return nil, nil, fmt.Errorf("crl of %s: %w", tls.CACertificate, err)
				}
				merged.WriteString(content)
			}
			if err := write(ArtifactCRL, merged.String()); err != nil {
				return nil, nil, err
			}
		}
	}

	if tls.Certificate != "" {
		entry := pki.Certificate[tls.Certificate]
		if entry.Certificate != "" {
			content, err := wrapCertificate(entry.Certificate)
			if err != nil {
				return nil, nil, fmt.Errorf("certificate %s: %w", tls.Certificate, err)
			}
			if err := write(ArtifactCert, content); err != nil {
				return nil, nil, err
			}
		}
		if entry.Private != nil && entry.Private.Key != "" {
			content, err := wrapPrivateKey(entry.Private.Key)
			if err != nil {
				return nil, nil, fmt.Errorf("private key of %s: %w", tls.Certificate, err)
			}
			if err := write(ArtifactCertKey, content); err != nil {
				return nil, nil, err
			}
		}
	}

	if tls.DHParams != "" {
		entry := pki.DH[tls.DHParams]
		if entry.Parameters != "" {
			content, err := wrapDHParameters(entry.Parameters)
			if err != nil {
				return nil, nil, fmt.Errorf("dh-params %s: %w", tls.DHParams, err)
			}
			if err := write(ArtifactDH, content); err != nil {
				return nil, nil, err
			}
		}
	}

	if tls.AuthKey != "" {
		entry := pki.OpenVPN.SharedSecret[tls.AuthKey]
		if entry.Key != "" {
			content, err := wrapOpenVPNKey(entry.Key)
			if err != nil {
				return nil, nil, fmt.Errorf("auth-key %s: %w", tls.AuthKey, err)
			}
			if err := write(ArtifactAuthKey, content); err != nil {
				return nil, nil, err
			}
		}
	}

	if tls.CryptKey != "" {
		entry := pki.OpenVPN.SharedSecret[tls.CryptKey]
		if entry.Key != "" {
			content, err := wrapOpenVPNKey(entry.Key)
			if err != nil {
				return nil, nil, fmt.Errorf("crypt-key %s: %w", tls.CryptKey, err)
			}
			if err := write(ArtifactCryptKey, content); err != nil {
				return nil, nil, err
			}
		}
	}

	return credentials, files, nil
}

func (g *Generator) writeOwned(path string, content []byte, mode os.FileMode) error {
	if err := writeFileAtomic(path, content, mode); err != nil {
		return err
	}
	return g.chown(path)
}

func (g *Generator) chown(path string) error {
	if g.Chown == nil {
		return nil
	}
	return g.Chown(path)
}
