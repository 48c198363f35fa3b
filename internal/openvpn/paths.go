package openvpn

import "path/filepath"

// ArtifactKind names one generated credential artifact.
type ArtifactKind string

// Credential artifact kinds, each with a fixed per-interface file name.
const (
	ArtifactSharedKey ArtifactKind = "shared"
	ArtifactCA        ArtifactKind = "ca"
	ArtifactCRL       ArtifactKind = "crl"
	ArtifactCert      ArtifactKind = "cert"
	ArtifactCertKey   ArtifactKind = "cert-key"
	ArtifactDH        ArtifactKind = "dh"
	ArtifactAuthKey   ArtifactKind = "auth"
	ArtifactCryptKey  ArtifactKind = "crypt"
)

var artifactFiles = map[ArtifactKind]string{
	ArtifactSharedKey: "_shared.key",
	ArtifactCA:        "_ca.pem",
	ArtifactCRL:       "_crl.pem",
	ArtifactCert:      "_cert.pem",
	ArtifactCertKey:   "_cert.key",
	ArtifactDH:        "_dh.pem",
	ArtifactAuthKey:   "_auth.key",
	ArtifactCryptKey:  "_crypt.key",
}

// Paths derives every on-disk location from the interface name, keeping
// literal path templates out of the rest of the system.
type Paths struct {
	// RunDir holds the daemon config, credential files and ccd tree.
	RunDir string
	// AuthDir holds the persistent OTP secret databases.
	AuthDir string
}

// DefaultPaths returns the production runtime layout.
func DefaultPaths() Paths {
	return Paths{
		RunDir:  "/run/openvpn",
		AuthDir: "/config/auth/openvpn",
	}
}

// Config returns the daemon configuration file path.
func (p Paths) Config(ifname string) string {
	return filepath.Join(p.RunDir, ifname+".conf")
}

// CCDDir returns the per-client config fragment directory.
func (p Paths) CCDDir(ifname string) string {
	return filepath.Join(p.RunDir, "ccd", ifname)
}

// ClientConfig returns the config fragment path for one client.
func (p Paths) ClientConfig(ifname, client string) string {
	return filepath.Join(p.CCDDir(ifname), client)
}

// AuthUserPass returns the username/password credentials file path.
func (p Paths) AuthUserPass(ifname string) string {
	return filepath.Join(p.RunDir, ifname+".pw")
}

// Status returns the daemon status file path.
func (p Paths) Status(ifname string) string {
	return filepath.Join(p.RunDir, ifname+".status")
}

// PID returns the daemon pid file path.
func (p Paths) PID(ifname string) string {
	return filepath.Join(p.RunDir, ifname+".pid")
}

// OTPSecrets returns the persistent OTP secret database path.
func (p Paths) OTPSecrets(ifname string) string {
	return filepath.Join(p.AuthDir, ifname+"-otp-secrets")
}

// Artifact returns the path of a named credential artifact.
func (p Paths) Artifact(ifname string, kind ArtifactKind) string {
	return filepath.Join(p.RunDir, ifname+artifactFiles[kind])
}

// RuntimeGlob returns the pattern matching every per-interface runtime file
// under the run directory, used for cleanup on delete/disable.
func (p Paths) RuntimeGlob(ifname string) string {
	return filepath.Join(p.RunDir, ifname+".*")
}
