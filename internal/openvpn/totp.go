package openvpn

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Base32 alphabet used for generated TOTP secrets.
const totpSecretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

const totpSecretLength = 16

// TOTPStore reconciles the persistent per-interface OTP secret database
// against the current client list. Secrets survive across runs: existing
// entries are kept verbatim, new clients get a fresh secret, removed
// clients are dropped when the file is rewritten.
type TOTPStore struct {
	Paths Paths
	Chown ChownFunc
}

// Reconcile rewrites the secret database for ifname to cover exactly the
// given clients. The file is replaced through a temp-file rename so a crash
// mid-run never truncates it.
func (s *TOTPStore) Reconcile(ifname string, clients []string) error {
	path := s.Paths.OTPSecrets(ifname)

	existing := make(map[string]string)
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if _, ok := existing[fields[0]]; !ok {
			existing[fields[0]] = line
		}
	}

	var buf strings.Builder
	for _, client := range clients {
		if line, ok := existing[client]; ok {
			buf.WriteString(line)
			buf.WriteByte('\n')
			continue
		}
		secret, err := newTOTPSecret()
		if err != nil {
			return err
		}
		fmt.Fprintf(&buf, "%s otp totp:sha1:base32:%s::xxx *\n", client, secret)
	}

	if err := os.MkdirAll(s.Paths.AuthDir, 0o755); err != nil {
		return err
	}
	if err := writeFileAtomic(path, []byte(buf.String()), 0o600); err != nil {
		return err
	}
	if s.Chown != nil {
		return s.Chown(path)
	}
	return nil
}

func newTOTPSecret() (string, error) {
	buf := make([]byte, totpSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, totpSecretLength)
	for i, b := range buf {
		out[i] = totpSecretAlphabet[int(b)%len(totpSecretAlphabet)]
	}
	return string(out), nil
}
