package openvpn

// verifyPKI checks the credential bindings of an otherwise validated
// configuration against the PKI snapshot. It is the terminal step of the
// authentication constraint groups.
func verifyPKI(cfg *InterfaceConfig) error {
	pki := cfg.PKI
	shared := cfg.SharedSecretKey != ""
	tls := cfg.TLS

	if shared == (tls != nil) {
		return rejectf(`must specify only one of "shared-secret-key" and "tls"`)
	}
	if (cfg.Mode == ModeServer || cfg.Mode == ModeClient) && tls == nil {
		return rejectf(`must specify "tls" for server and client modes`)
	}
	if pki.Empty() {
		return rejectf("PKI is not configured")
	}

	if shared {
		if len(pki.OpenVPN.SharedSecret) == 0 {
			return rejectf("there are no openvpn shared-secrets in PKI configuration")
		}
		if _, ok := pki.OpenVPN.SharedSecret[cfg.SharedSecretKey]; !ok {
			return rejectf("invalid shared-secret on openvpn interface %s", cfg.Ifname)
		}
		return nil
	}

	if tls.CACertificate == "" {
		return rejectf(`must specify "tls ca-certificate" on openvpn interface %s`, cfg.Ifname)
	}
	if _, ok := pki.CA[tls.CACertificate]; !ok {
		return rejectf("invalid CA certificate on openvpn interface %s", cfg.Ifname)
	}

	// A client using a static auth key may omit the leaf certificate.
	if !(cfg.Mode == ModeClient && tls.AuthKey != "") && tls.Certificate == "" {
		return rejectf(`missing "tls certificate" on openvpn interface %s`, cfg.Ifname)
	}

	if tls.Certificate != "" {
		entry, ok := pki.Certificate[tls.Certificate]
		if !ok {
			return rejectf("invalid certificate on openvpn interface %s", cfg.Ifname)
		}
		if entry.Private != nil && entry.Private.PasswordProtected {
			return rejectf("cannot use encrypted private key on openvpn interface %s", cfg.Ifname)
		}
		if cfg.Mode == ModeServer && tls.DHParams == "" && !isECPrivateKey(pki, tls.Certificate) {
			return rejectf(`must specify "tls dh-params" when not using EC keys in server mode`)
		}
	}

	if tls.DHParams != "" {
		if len(pki.DH) == 0 {
			return rejectf("there are no DH parameters in PKI configuration")
		}
		entry, ok := pki.DH[tls.DHParams]
		if !ok {
			return rejectf("invalid dh-params on openvpn interface %s", cfg.Ifname)
		}
		bits, err := dhBitLength(entry.Parameters)
		if err != nil {
			return rejectf("cannot read dh-params on openvpn interface %s: %v", cfg.Ifname, err)
		}
		if bits < 2048 {
			return rejectf("minimum DH key-size is 2048 bits")
		}
	}

	if tls.AuthKey != "" || tls.CryptKey != "" {
		if len(pki.OpenVPN.SharedSecret) == 0 {
			return rejectf("there are no openvpn shared-secrets in PKI configuration")
		}
	}
	if tls.AuthKey != "" {
		if _, ok := pki.OpenVPN.SharedSecret[tls.AuthKey]; !ok {
			return rejectf("invalid auth-key on openvpn interface %s", cfg.Ifname)
		}
	}
	if tls.CryptKey != "" {
		if _, ok := pki.OpenVPN.SharedSecret[tls.CryptKey]; !ok {
			return rejectf("invalid crypt-key on openvpn interface %s", cfg.Ifname)
		}
	}
	return nil
}
