package openvpn

import (
	"crypto/ecdsa"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"

	"crypto/x509"
)

// PKISnapshot is a point-in-time read-only view of the credential store.
// Certificate, key and DH material is stored as base64 DER; OpenVPN shared
// secrets keep the daemon's native static-key body.
type PKISnapshot struct {
	CA          map[string]CertEntry `json:"ca,omitempty"`
	Certificate map[string]CertEntry `json:"certificate,omitempty"`
	DH          map[string]DHEntry   `json:"dh,omitempty"`
	OpenVPN     OpenVPNSecrets       `json:"openvpn,omitempty"`
}

// OpenVPNSecrets holds daemon-specific key material.
type OpenVPNSecrets struct {
	SharedSecret map[string]KeyEntry `json:"shared_secret,omitempty"`
}

// KeyEntry is one named OpenVPN static key.
type KeyEntry struct {
	Key string `json:"key,omitempty"`
}

// CertEntry is a certificate with optional CRLs and private key.
type CertEntry struct {
	Certificate string      `json:"certificate,omitempty"`
	CRL         []string    `json:"crl,omitempty"`
	Private     *PrivateKey `json:"private,omitempty"`
}

// PrivateKey is the private half of a certificate entry.
type PrivateKey struct {
	Key               string `json:"key,omitempty"`
	PasswordProtected bool   `json:"password_protected,omitempty"`
}

// DHEntry is one named Diffie-Hellman parameter set.
type DHEntry struct {
	Parameters string `json:"parameters,omitempty"`
}

// Empty reports whether the snapshot holds no material at all.
func (p *PKISnapshot) Empty() bool {
	if p == nil {
		return true
	}
	return len(p.CA) == 0 && len(p.Certificate) == 0 && len(p.DH) == 0 &&
		len(p.OpenVPN.SharedSecret) == 0
}

func decodeB64(data string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, data)
	return base64.StdEncoding.DecodeString(cleaned)
}

func wrapPEM(blockType, b64 string) (string, error) {
	der, err := decodeB64(b64)
	if err != nil {
		return "", fmt.Errorf("invalid base64 %s material: %w", strings.ToLower(blockType), err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})), nil
}

// wrapCertificate renders a stored certificate in PEM encoding.
func wrapCertificate(b64 string) (string, error) { return wrapPEM("CERTIFICATE", b64) }

// wrapCRL renders a stored certificate revocation list in PEM encoding.
func wrapCRL(b64 string) (string, error) { return wrapPEM("X509 CRL", b64) }

// wrapPrivateKey renders a stored private key in PEM encoding.
func wrapPrivateKey(b64 string) (string, error) { return wrapPEM("PRIVATE KEY", b64) }

// wrapDHParameters renders stored DH parameters in PEM encoding.
func wrapDHParameters(b64 string) (string, error) { return wrapPEM("DH PARAMETERS", b64) }

// wrapOpenVPNKey renders a stored static key in the daemon's native framing.
func wrapOpenVPNKey(b64 string) (string, error) {
	body, err := decodeB64(b64)
	if err != nil {
		return "", fmt.Errorf("invalid base64 openvpn key material: %w", err)
	}
	text := strings.TrimRight(string(body), "\n")
	return "-----BEGIN OpenVPN Static key V1-----\n" + text +
		"\n-----END OpenVPN Static key V1-----\n", nil
}

// isECPrivateKey reports whether the named certificate's private key uses
// elliptic-curve cryptography. Missing or unparsable material is simply not
// an EC key; binding resolution errors are raised elsewhere.
func isECPrivateKey(pki *PKISnapshot, certName string) bool {
	if pki == nil || certName == "" {
		return false
	}
	entry, ok := pki.Certificate[certName]
	if !ok || entry.Private == nil || entry.Private.Key == "" {
		return false
	}
	der, err := decodeB64(entry.Private.Key)
	if err != nil {
		return false
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		_, ec := key.(*ecdsa.PrivateKey)
		return ec
	}
	if _, err := x509.ParseECPrivateKey(der); err == nil {
		return true
	}
	return false
}

// pkcs3Params mirrors the DER layout of PKCS#3 DH parameters.
type pkcs3Params struct {
	P             *big.Int
	G             *big.Int
	PrivateLength int `asn1:"optional"`
}

// dhBitLength returns the modulus bit length of a stored DH parameter set.
func dhBitLength(b64 string) (int, error) {
	der, err := decodeB64(b64)
	if err != nil {
		return 0, fmt.Errorf("invalid base64 dh parameters: %w", err)
	}
	var params pkcs3Params
	if _, err := asn1.Unmarshal(der, &params); err != nil {
		return 0, fmt.Errorf("invalid dh parameters: %w", err)
	}
	if params.P == nil {
		return 0, fmt.Errorf("dh parameters have no modulus")
	}
	return params.P.BitLen(), nil
}
