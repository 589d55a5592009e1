// Package secret derives the keys used by the session codec and the CSRF guard
// from the configured application secret.
package secret

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/light-auth/internal/config"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the AES-256 key length required by the A256GCM session codec
	KeySize = 32

	hkdfSalt = "light-auth"
	hkdfInfo = "session encryption"
)

// Key carries the raw secret and the symmetric key derived from it.
type Key struct {
	value      string
	encryption []byte
}

// Derive builds a Key from secret. An empty secret is a configuration error.
func Derive(secret string) (Key, error) {
	if strings.TrimSpace(secret) == "" {
		return Key{}, fmt.Errorf("%w: %s is not set", autherrors.ErrConfig, config.SecretEnvVar)
	}

	encryption := make([]byte, KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), []byte(hkdfSalt), []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, encryption); err != nil {
		return Key{}, fmt.Errorf("[secret.Derive] hkdf: %w", err)
	}

	return Key{value: secret, encryption: encryption}, nil
}

// FromEnv derives the Key from the environment-backed security config.
func FromEnv(cfg config.SecurityConfig) (Key, error) {
	return Derive(cfg.GetSecret())
}

// Value returns the raw secret. The CSRF guard binds its hashes to it.
func (k Key) Value() string {
	return k.value
}

// Encryption returns a copy of the derived 32-byte encryption key.
func (k Key) Encryption() []byte {
	out := make([]byte, len(k.encryption))
	copy(out, k.encryption)
	return out
}

// IsZero reports whether the key was never derived.
func (k Key) IsZero() bool {
	return len(k.encryption) == 0
}
