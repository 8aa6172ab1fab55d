package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileVault(t *testing.T, env map[string]string) *Vault {
	t.Helper()
	return New(Options{
		SecretsPath: filepath.Join(t.TempDir(), "secrets.json"),
		NoKeyring:   true,
		Getenv:      func(k string) string { return env[k] },
	})
}

func TestSetGetListRoundTripThroughEncryptedFile(t *testing.T) {
	v := fileVault(t, nil)
	require.NoError(t, v.Set("GROQ_API_KEY", "gsk_real_value_123"))
	require.NoError(t, v.Set("GEMINI_API_KEY", "AIza-something"))

	got, err := v.Get("GROQ_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "gsk_real_value_123", got)

	keys, err := v.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"GEMINI_API_KEY", "GROQ_API_KEY"}, keys)

	raw, err := os.ReadFile(v.file.path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "gsk_real_value_123")

	_, err = v.Get("MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlaintextFileIsAcceptedAndResealed(t *testing.T) {
	v := fileVault(t, nil)
	require.NoError(t, os.WriteFile(v.file.path, []byte(`{"GROQ_API_KEY":"plain"}`), 0600))

	got, err := v.Get("GROQ_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	raw, err := os.ReadFile(v.file.path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ciphertext")
}

func TestResolveAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		stored  string
		want    string
		wantErr string
	}{
		{name: "env wins", env: map[string]string{"K": "from-env"}, stored: "from-vault", want: "from-env"},
		{name: "quotes stripped", env: map[string]string{"K": `  "quoted"  `}, want: "quoted"},
		{name: "vault fallback", stored: " 'stored' ", want: "stored"},
		{name: "env placeholder falls through to vault", env: map[string]string{"K": "your_key_here"}, stored: "real", want: "real"},
		{name: "placeholder only", env: map[string]string{"K": "gsk_your_existing_key_here"}, wantErr: "placeholder"},
		{name: "nothing", wantErr: "flora vault set K"},
		{name: "empty quotes", env: map[string]string{"K": `""`}, wantErr: "missing credential"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := fileVault(t, tt.env)
			if tt.stored != "" {
				require.NoError(t, v.Set("K", tt.stored))
			}
			got, err := v.ResolveAPIKey("K")
			if tt.wantErr != "" {
				assert.ErrorIs(t, err, ErrMissingCredential)
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "****", Mask("abcd"))
	assert.Equal(t, "a********f", Mask("abcdef"))
	assert.Equal(t, "gsk********xyz", Mask("gsk_1234567890xyz"))
}
