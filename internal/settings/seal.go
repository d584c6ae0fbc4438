package settings

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"filippo.io/age"
)

// sealer encrypts small values to a scrypt passphrase recipient.
// Ciphertext is base64 encoded for storage in a TEXT column.
type sealer struct {
	passphrase string

	// workFactor is the scrypt log2(N); zero keeps the age default.
	workFactor int
}

func (s sealer) seal(plaintext string) (string, error) {
	if s.passphrase == "" {
		return "", ErrNoPassphrase
	}
	recipient, err := age.NewScryptRecipient(s.passphrase)
	if err != nil {
		return "", fmt.Errorf("creating recipient: %w", err)
	}
	if s.workFactor > 0 {
		recipient.SetWorkFactor(s.workFactor)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return "", fmt.Errorf("creating encryptor: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s sealer) open(ciphertext string) (string, error) {
	if s.passphrase == "" {
		return "", ErrNoPassphrase
	}
	identity, err := age.NewScryptIdentity(s.passphrase)
	if err != nil {
		return "", fmt.Errorf("creating identity: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decoding: %w", ErrSealed, err)
	}
	r, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSealed, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: reading: %w", ErrSealed, err)
	}
	return string(plaintext), nil
}
