// Package cryptoutil provides field-level encryption for sensitive
// demographics and PIN hashing for the clinician handoff.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/wardlight/intake/internal/schema"
)

const (
	// DefaultKeyEnv names the env var holding the base64 active key.
	DefaultKeyEnv = "FIELD_ENCRYPTION_KEY"

	keySize = 32
	ivSize  = 12
)

// EnvKeyProvider implements field encryption with AES-256-GCM. It holds
// one active key and optional legacy keys indexed by version so records
// encrypted under retired keys still decrypt.
type EnvKeyProvider struct {
	active keyConfig
	legacy map[int]keyConfig
}

type keyConfig struct {
	key     []byte
	version int
}

// ProviderOption customizes provider construction.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	envVar          string
	fallbackVersion int
	legacyKeys      map[int]string
}

// WithKeyEnv overrides the env var holding the active key.
func WithKeyEnv(envVar string) ProviderOption {
	return func(c *providerConfig) {
		if envVar != "" {
			c.envVar = envVar
		}
	}
}

// WithFallbackVersion sets the key version used when the env does not
// declare one.
func WithFallbackVersion(version int) ProviderOption {
	return func(c *providerConfig) { c.fallbackVersion = version }
}

// WithLegacyKeys registers retired base64-encoded keys by version.
func WithLegacyKeys(keys map[int]string) ProviderOption {
	return func(c *providerConfig) { c.legacyKeys = keys }
}

// NewEnvKeyProvider loads the active key from the environment. The key
// must decode to exactly 32 bytes. A "<VAR>_VERSION" companion env var
// overrides the key version.
func NewEnvKeyProvider(opts ...ProviderOption) (*EnvKeyProvider, error) {
	cfg := providerConfig{envVar: DefaultKeyEnv, fallbackVersion: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	encoded := os.Getenv(cfg.envVar)
	if encoded == "" {
		return nil, fmt.Errorf("cryptoutil: missing encryption key env var %s", cfg.envVar)
	}
	active, err := decodeKey(encoded, versionFromEnv(cfg.envVar, cfg.fallbackVersion))
	if err != nil {
		return nil, err
	}

	p := &EnvKeyProvider{active: active, legacy: make(map[int]keyConfig)}
	for version, b64 := range cfg.legacyKeys {
		legacy, err := decodeKey(b64, version)
		if err != nil {
			return nil, fmt.Errorf("cryptoutil: legacy key %d: %w", version, err)
		}
		p.legacy[version] = legacy
	}
	return p, nil
}

// NewStaticProvider builds a provider from raw key bytes, bypassing the
// environment. Used by tests and embedded setups.
func NewStaticProvider(key []byte, version int) (*EnvKeyProvider, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("cryptoutil: encryption key must be %d bytes for aes-256-gcm", keySize)
	}
	k := make([]byte, keySize)
	copy(k, key)
	return &EnvKeyProvider{
		active: keyConfig{key: k, version: version},
		legacy: make(map[int]keyConfig),
	}, nil
}

// Encrypt seals a plaintext value under the active key. The GCM tag is
// carried separately from the ciphertext in the envelope.
func (p *EnvKeyProvider) Encrypt(plaintext string) (schema.EncryptedField, error) {
	block, err := aes.NewCipher(p.active.key)
	if err != nil {
		return schema.EncryptedField{}, fmt.Errorf("cryptoutil: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return schema.EncryptedField{}, fmt.Errorf("cryptoutil: new gcm: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return schema.EncryptedField{}, fmt.Errorf("cryptoutil: generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	tagStart := len(sealed) - gcm.Overhead()
	return schema.EncryptedField{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:tagStart]),
		IV:         base64.StdEncoding.EncodeToString(iv),
		AuthTag:    base64.StdEncoding.EncodeToString(sealed[tagStart:]),
		KeyVersion: p.active.version,
	}, nil
}

// Decrypt opens an envelope, resolving the key by the envelope's
// version.
func (p *EnvKeyProvider) Decrypt(payload schema.EncryptedField) (string, error) {
	cfg, err := p.resolveKey(payload.KeyVersion)
	if err != nil {
		return "", err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: decode ciphertext: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: decode iv: %w", err)
	}
	tag, err := base64.StdEncoding.DecodeString(payload.AuthTag)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: decode auth tag: %w", err)
	}

	block, err := aes.NewCipher(cfg.key)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: new gcm: %w", err)
	}
	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: open envelope: %w", err)
	}
	return string(plaintext), nil
}

func (p *EnvKeyProvider) resolveKey(version int) (keyConfig, error) {
	if version == p.active.version {
		return p.active, nil
	}
	if cfg, ok := p.legacy[version]; ok {
		return cfg, nil
	}
	return keyConfig{}, fmt.Errorf("cryptoutil: no key registered for version %d", version)
}

func decodeKey(encoded string, version int) (keyConfig, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return keyConfig{}, fmt.Errorf("cryptoutil: decode key: %w", err)
	}
	if len(key) != keySize {
		return keyConfig{}, fmt.Errorf("cryptoutil: encryption key must be %d bytes for aes-256-gcm", keySize)
	}
	return keyConfig{key: key, version: version}, nil
}

func versionFromEnv(envVar string, fallback int) int {
	raw := os.Getenv(envVar + "_VERSION")
	if raw == "" {
		return fallback
	}
	var version int
	if _, err := fmt.Sscanf(raw, "%d", &version); err != nil || version < 1 {
		return fallback
	}
	return version
}
