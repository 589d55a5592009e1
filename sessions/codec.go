// Package sessions encodes the session record into an authenticated, encrypted cookie.
package sessions

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/jrsteele09/light-auth/secret"
)

// ErrDecrypt is returned for every decode failure: malformed, tampered, wrong key or
// undecodable payload are indistinguishable to the caller.
var ErrDecrypt = errors.New("session token could not be decrypted")

// Codec seals values as compact JWE with direct key agreement and A256GCM.
type Codec struct {
	key       []byte
	encrypter jose.Encrypter
}

func NewCodec(key secret.Key) (*Codec, error) {
	if key.IsZero() {
		return nil, errors.New("[NewCodec] key is required")
	}
	enc := key.Encryption()
	encrypter, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: enc},
		(&jose.EncrypterOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("[NewCodec] failed to create encrypter: %w", err)
	}
	return &Codec{key: enc, encrypter: encrypter}, nil
}

// Encrypt serializes v to JSON and seals it.
func (c *Codec) Encrypt(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("[Codec.Encrypt] marshal: %w", err)
	}
	obj, err := c.encrypter.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("[Codec.Encrypt] encrypt: %w", err)
	}
	return obj.CompactSerialize()
}

// Decrypt opens token into v. Any failure is ErrDecrypt wrapping the cause.
func (c *Codec) Decrypt(token string, v any) error {
	obj, err := jose.ParseEncryptedCompact(token, []jose.KeyAlgorithm{jose.DIRECT}, []jose.ContentEncryption{jose.A256GCM})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	payload, err := obj.Decrypt(c.key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	return nil
}

func (c *Codec) EncryptSession(s *Session) (string, error) {
	return c.Encrypt(s)
}

// DecryptSession returns nil for any token that does not open to a complete session.
func (c *Codec) DecryptSession(token string) (*Session, error) {
	var s Session
	if err := c.Decrypt(token, &s); err != nil {
		return nil, err
	}
	if !s.Complete() {
		return nil, nil
	}
	return &s, nil
}
