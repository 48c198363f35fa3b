package openvpn

import (
	"encoding/asn1"
	"encoding/base64"
	"math/big"
	"strings"
	"testing"
)

func dhParamsB64(t *testing.T, bits int) string {
	t.Helper()
	der, err := asn1.Marshal(pkcs3Params{
		P: new(big.Int).Lsh(big.NewInt(1), uint(bits-1)),
		G: big.NewInt(2),
	})
	if err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(der)
}

func expectPKIRejection(t *testing.T, cfg *InterfaceConfig, fragment string) {
	t.Helper()
	err := verifyPKI(cfg)
	if err == nil {
		t.Fatalf("expected rejection containing %q, configuration passed", fragment)
	}
	if !strings.Contains(err.Error(), fragment) {
		t.Fatalf("expected rejection containing %q, got %q", fragment, err)
	}
}

func TestVerifyPKICredentialExclusivity(t *testing.T) {
	cfg := siteToSiteConfig()
	cfg.TLS = &TLSOptions{CACertificate: "root"}
	expectPKIRejection(t, cfg, "only one")

	cfg = siteToSiteConfig()
	cfg.SharedSecretKey = ""
	expectPKIRejection(t, cfg, "only one")
}

func TestVerifyPKITLSMandatoryForClientServer(t *testing.T) {
	cfg := clientConfig(t)
	cfg.TLS = nil
	cfg.SharedSecretKey = "s1"
	expectPKIRejection(t, cfg, `must specify "tls"`)
}

func TestVerifyPKISharedSecretResolution(t *testing.T) {
	cfg := siteToSiteConfig()
	if err := verifyPKI(cfg); err != nil {
		t.Fatalf("resolvable shared secret rejected: %v", err)
	}

	cfg.SharedSecretKey = "missing"
	expectPKIRejection(t, cfg, "invalid shared-secret")

	cfg.PKI = &PKISnapshot{CA: map[string]CertEntry{"root": {}}}
	expectPKIRejection(t, cfg, "no openvpn shared-secrets")

	cfg.PKI = nil
	expectPKIRejection(t, cfg, "PKI is not configured")
}

func TestVerifyPKICertificateBindings(t *testing.T) {
	cfg := serverConfig(t)
	if err := verifyPKI(cfg); err != nil {
		t.Fatalf("EC-keyed server rejected: %v", err)
	}

	cfg = serverConfig(t)
	cfg.TLS.CACertificate = ""
	expectPKIRejection(t, cfg, "ca-certificate")

	cfg = serverConfig(t)
	cfg.TLS.CACertificate = "other"
	expectPKIRejection(t, cfg, "invalid CA certificate")

	cfg = serverConfig(t)
	cfg.TLS.Certificate = ""
	expectPKIRejection(t, cfg, `missing "tls certificate"`)

	cfg = serverConfig(t)
	cfg.TLS.Certificate = "other"
	expectPKIRejection(t, cfg, "invalid certificate")

	cfg = serverConfig(t)
	cfg.PKI.Certificate["leaf"] = CertEntry{
		Certificate: b64("leaf-der"),
		Private:     &PrivateKey{Key: ecKeyB64(t), PasswordProtected: true},
	}
	expectPKIRejection(t, cfg, "encrypted private key")
}

func TestVerifyPKIClientAuthKeyWithoutCertificate(t *testing.T) {
	cfg := clientConfig(t)
	cfg.TLS.Certificate = ""
	cfg.TLS.AuthKey = "s1"
	if err := verifyPKI(cfg); err != nil {
		t.Fatalf("client with static auth key must not need a certificate: %v", err)
	}
}

func TestVerifyPKIServerDHRequirement(t *testing.T) {
	// A non-EC private key forces DH parameters in server mode.
	cfg := serverConfig(t)
	cfg.PKI.Certificate["leaf"] = CertEntry{
		Certificate: b64("leaf-der"),
		Private:     &PrivateKey{Key: b64("not a key")},
	}
	expectPKIRejection(t, cfg, "dh-params")

	cfg.PKI.DH = map[string]DHEntry{"dh1": {Parameters: dhParamsB64(t, 2048)}}
	cfg.TLS.DHParams = "dh1"
	if err := verifyPKI(cfg); err != nil {
		t.Fatalf("server with 2048-bit DH parameters rejected: %v", err)
	}
}

func TestVerifyPKIDHBitLength(t *testing.T) {
	cfg := serverConfig(t)
	cfg.PKI.DH = map[string]DHEntry{"dh1": {Parameters: dhParamsB64(t, 1024)}}
	cfg.TLS.DHParams = "dh1"
	expectPKIRejection(t, cfg, "2048 bits")

	cfg.PKI.DH = map[string]DHEntry{"dh1": {Parameters: b64("garbage")}}
	expectPKIRejection(t, cfg, "cannot read dh-params")

	cfg.TLS.DHParams = "other"
	expectPKIRejection(t, cfg, "invalid dh-params")

	cfg.PKI.DH = nil
	expectPKIRejection(t, cfg, "no DH parameters")
}

func TestVerifyPKIAuthAndCryptKeys(t *testing.T) {
	cfg := clientConfig(t)
	cfg.TLS.AuthKey = "missing"
	expectPKIRejection(t, cfg, "invalid auth-key")

	cfg = clientConfig(t)
	cfg.TLS.CryptKey = "missing"
	expectPKIRejection(t, cfg, "invalid crypt-key")

	cfg = clientConfig(t)
	cfg.PKI.OpenVPN.SharedSecret = nil
	cfg.TLS.CryptKey = "s1"
	expectPKIRejection(t, cfg, "no openvpn shared-secrets")
}

func TestDHBitLength(t *testing.T) {
	bits, err := dhBitLength(dhParamsB64(t, 2048))
	if err != nil {
		t.Fatalf("dhBitLength returned error: %v", err)
	}
	if bits != 2048 {
		t.Fatalf("expected 2048 bits, got %d", bits)
	}
	if _, err := dhBitLength("%%%"); err == nil {
		t.Fatal("expected invalid base64 to fail")
	}
}

func TestIsECPrivateKey(t *testing.T) {
	pki := tlsPKI(t)
	if !isECPrivateKey(pki, "leaf") {
		t.Fatal("expected PKCS#8 EC key to be detected")
	}
	if isECPrivateKey(pki, "missing") {
		t.Fatal("unknown certificate must not count as EC")
	}
	pki.Certificate["rsa"] = CertEntry{Private: &PrivateKey{Key: b64("not a key")}}
	if isECPrivateKey(pki, "rsa") {
		t.Fatal("unparsable key must not count as EC")
	}
}
