package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// sealed is the on-disk form of the secrets file.
type sealed struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

var errNotSealed = errors.New("not an encrypted payload")

// machineID ties the file key to this host so a copied secrets file is
// useless elsewhere.
func machineID() string {
	if runtime.GOOS == "linux" {
		for _, p := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
			if data, err := os.ReadFile(p); err == nil {
				if id := strings.TrimSpace(string(data)); id != "" {
					return id
				}
			}
		}
	}
	hostname, _ := os.Hostname()
	home, _ := os.UserHomeDir()
	return hostname + ":" + home
}

func fileKey() []byte {
	sum := sha256.Sum256([]byte(machineID() + "flora-v1-salt"))
	return sum[:]
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(fileKey())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func seal(plain []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return json.MarshalIndent(sealed{
		Version:    1,
		Nonce:      hex.EncodeToString(nonce),
		Ciphertext: hex.EncodeToString(gcm.Seal(nil, nonce, plain, nil)),
	}, "", "  ")
}

func open(data []byte) ([]byte, error) {
	var s sealed
	if err := json.Unmarshal(data, &s); err != nil || s.Ciphertext == "" {
		return nil, errNotSealed
	}
	if s.Version != 1 {
		return nil, fmt.Errorf("unsupported encryption version: %d", s.Version)
	}
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	nonce, err := hex.DecodeString(s.Nonce)
	if err != nil {
		return nil, err
	}
	ct, err := hex.DecodeString(s.Ciphertext)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ct, nil)
}

// secretsFile is the encrypted JSON fallback used when no OS keyring is
// reachable.
type secretsFile struct {
	path string
}

func (f secretsFile) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	secrets := map[string]string{}
	plain, err := open(data)
	if errors.Is(err, errNotSealed) {
		// Plaintext files from hand editing are accepted and re-sealed.
		if jerr := json.Unmarshal(data, &secrets); jerr != nil {
			return nil, fmt.Errorf("secrets file is neither encrypted nor valid JSON: %w", jerr)
		}
		_ = f.save(secrets)
		return secrets, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secrets: %w", err)
	}
	if err := json.Unmarshal(plain, &secrets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted secrets: %w", err)
	}
	return secrets, nil
}

func (f secretsFile) save(secrets map[string]string) error {
	plain, err := json.Marshal(secrets)
	if err != nil {
		return err
	}
	data, err := seal(plain)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0600)
}

// Mask returns a masked version of a secret string
func Mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	case len(s) <= 10:
		return s[:1] + "********" + s[len(s)-1:]
	}
	return s[:3] + "********" + s[len(s)-3:]
}
