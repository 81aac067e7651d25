package secrets

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
)

// AgeEncryptor wraps a single age X25519 identity used to encrypt and
// decrypt the static credential blobs the Manager stores (spec.md §3
// "Tool.credential", mode=static). One recipient/identity pair per
// runtime deployment; rotating it is an operational concern outside
// this package.
type AgeEncryptor struct {
	identity  *age.X25519Identity
	recipient age.Recipient
}

// NewAgeEncryptor builds an AgeEncryptor from an identity string in the
// AGE-SECRET-KEY-1... form (as produced by age-keygen).
func NewAgeEncryptor(identityStr string) (*AgeEncryptor, error) {
	identity, err := age.ParseX25519Identity(identityStr)
	if err != nil {
		return nil, fmt.Errorf("parse age identity: %w", err)
	}
	return &AgeEncryptor{identity: identity, recipient: identity.Recipient()}, nil
}

// Encrypt seals plaintext to the encryptor's own recipient.
func (e *AgeEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, e.recipient)
	if err != nil {
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	return buf.Bytes(), nil
}

// Decrypt opens a blob previously produced by Encrypt.
func (e *AgeEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(ciphertext), e.identity)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}
	return plaintext, nil
}
