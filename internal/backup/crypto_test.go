package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(salt1) != saltSize {
		t.Errorf("salt length = %d, want %d", len(salt1), saltSize)
	}

	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt 2: %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Error("two salts should not be equal")
	}
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := DeriveKey("mypassphrase", salt)
	key2 := DeriveKey("mypassphrase", salt)
	if !bytes.Equal(key1, key2) {
		t.Error("same passphrase+salt should produce same key")
	}
	if len(key1) != keySize {
		t.Errorf("key length = %d, want %d", len(key1), keySize)
	}
	if bytes.Equal(key1, DeriveKey("other", salt)) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	original := []byte(`{"timeline":{"wedding_date":"2025-12-31"}}`)

	enc, err := Encrypt(original, "test-passphrase-123", salt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(enc, original) {
		t.Error("ciphertext contains plaintext")
	}
	if !bytes.Equal(enc[:saltSize], salt) {
		t.Error("ciphertext should start with salt")
	}

	dec, err := Decrypt(enc, "test-passphrase-123")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(dec, original) {
		t.Errorf("decrypted = %q", dec)
	}
}

func TestEncryptEmpty(t *testing.T) {
	salt, _ := GenerateSalt()
	enc, err := Encrypt(nil, "password", salt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	dec, err := Decrypt(enc, "password")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(dec) != 0 {
		t.Errorf("decrypted %d bytes, want 0", len(dec))
	}
}

func TestEncryptBadSalt(t *testing.T) {
	if _, err := Encrypt([]byte("x"), "password", []byte("short")); err == nil {
		t.Fatal("expected error for short salt")
	}
}

func TestDecryptFailures(t *testing.T) {
	salt, _ := GenerateSalt()
	enc, err := Encrypt([]byte("secret data"), "correct-password", salt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := Decrypt(enc, "wrong-password"); err == nil {
		t.Error("expected error with wrong passphrase")
	}

	tampered := bytes.Clone(enc)
	tampered[saltSize+nonceSize+1] ^= 0xFF
	if _, err := Decrypt(tampered, "correct-password"); err == nil {
		t.Error("expected error with tampered ciphertext")
	}

	if _, err := Decrypt([]byte("too short"), "password"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("err = %v, want ErrCiphertextTooShort", err)
	}
}
