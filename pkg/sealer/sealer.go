package sealer

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrInvalidSealed sealed text malformed or tampered
var ErrInvalidSealed = errors.New("invalid sealed text")

// Sealer seal / open secrets with a key derived from a passphrase
type Sealer struct {
	key []byte
}

// New new sealer, the passphrase is stretched to a 32 bytes key
func New(passphrase string) *Sealer {
	sum := sha256.Sum256([]byte(passphrase))
	return &Sealer{key: sum[:]}
}

// Seal encrypt plain, base64(nonce | ciphertext)
func (s *Sealer) Seal(plain string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	out := aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypt sealed text
func (s *Sealer) Open(sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrInvalidSealed
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}

	if len(data) < aead.NonceSize() {
		return "", ErrInvalidSealed
	}

	nonce, cipher := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, cipher, nil)
	if err != nil {
		return "", ErrInvalidSealed
	}

	return string(plain), nil
}
