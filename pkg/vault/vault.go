// Package vault stores API credentials in the OS keyring, falling back to an
// encrypted file, and resolves them at startup.
package vault

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/99designs/keyring"
	"github.com/nathfavour/flora/pkg/config"
)

// ErrMissingCredential means no usable value was found for a required key.
var ErrMissingCredential = errors.New("missing credential")

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("secret not found")

// placeholders are template values that must never be sent to a provider.
var placeholders = []string{
	"your_key_here",
	"gsk_your_existing_key_here",
	"your_api_key",
	"changeme",
}

type Options struct {
	// Service is the keyring service name.
	Service string
	// SecretsPath is the encrypted fallback file.
	SecretsPath string
	// NoKeyring disables the OS keyring entirely.
	NoKeyring bool
	// Getenv replaces os.Getenv during resolution.
	Getenv func(string) string
}

type Vault struct {
	ring   keyring.Keyring
	file   secretsFile
	getenv func(string) string
	mu     sync.RWMutex
}

var (
	instance *Vault
	once     sync.Once
)

// GetVault returns the process-wide vault backed by the OS keyring and
// ~/.flora/secrets.json.
func GetVault() *Vault {
	once.Do(func() {
		instance = New(Options{Service: "flora", SecretsPath: config.SecretsPath()})
	})
	return instance
}

func New(opts Options) *Vault {
	v := &Vault{file: secretsFile{path: opts.SecretsPath}, getenv: opts.Getenv}
	if v.getenv == nil {
		v.getenv = os.Getenv
	}
	if !opts.NoKeyring {
		ring, err := keyring.Open(keyring.Config{
			ServiceName: opts.Service,
			// The file backend prompts for a passphrase; the encrypted
			// fallback covers that case instead.
			AllowedBackends: []keyring.BackendType{
				keyring.SecretServiceBackend,
				keyring.KeychainBackend,
				keyring.WinCredBackend,
				keyring.KWalletBackend,
			},
		})
		if err == nil {
			v.ring = ring
		}
	}
	return v
}

func (v *Vault) Set(key, value string) error {
	if v.ring != nil {
		if err := v.ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err == nil {
			return nil
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	secrets, err := v.file.load()
	if err != nil {
		secrets = map[string]string{}
	}
	secrets[key] = value
	return v.file.save(secrets)
}

func (v *Vault) Get(key string) (string, error) {
	if v.ring != nil {
		if item, err := v.ring.Get(key); err == nil {
			return string(item.Data), nil
		}
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	secrets, err := v.file.load()
	if err != nil {
		return "", err
	}
	if val, ok := secrets[key]; ok {
		return val, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

func (v *Vault) List() ([]string, error) {
	if v.ring != nil {
		if keys, err := v.ring.Keys(); err == nil {
			sort.Strings(keys)
			return keys, nil
		}
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	secrets, err := v.file.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(secrets))
	for k := range secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Normalize strips whitespace and one layer of matching quotes, as left
// behind by `export KEY="..."` copied into a .env file.
func Normalize(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			value = strings.TrimSpace(value[1 : len(value)-1])
		}
	}
	return value
}

// IsPlaceholder reports whether value is a template stand-in.
func IsPlaceholder(value string) bool {
	v := strings.ToLower(Normalize(value))
	for _, p := range placeholders {
		if v == p {
			return true
		}
	}
	return false
}

// ResolveAPIKey returns the credential called name, checking the
// environment first and then the vault. Empty and placeholder values are
// rejected with ErrMissingCredential.
func (v *Vault) ResolveAPIKey(name string) (string, error) {
	sawPlaceholder := false
	if val := Normalize(v.getenv(name)); val != "" {
		if !IsPlaceholder(val) {
			return val, nil
		}
		sawPlaceholder = true
	}
	if stored, err := v.Get(name); err == nil {
		if val := Normalize(stored); val != "" {
			if !IsPlaceholder(val) {
				return val, nil
			}
			sawPlaceholder = true
		}
	}
	if sawPlaceholder {
		return "", fmt.Errorf("%w: %s is still set to a placeholder value", ErrMissingCredential, name)
	}
	return "", fmt.Errorf("%w: set %s in the environment or run `flora vault set %s <value>`", ErrMissingCredential, name, name)
}
