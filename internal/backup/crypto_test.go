package backup

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDeriveKeyDeterminism(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := DeriveKey("mypassphrase", salt)
	key2 := DeriveKey("mypassphrase", salt)
	if !bytes.Equal(key1, key2) {
		t.Error("same passphrase and salt should produce same key")
	}
	if len(key1) != keySize {
		t.Errorf("key length = %d, want %d", len(key1), keySize)
	}
	if bytes.Equal(key1, DeriveKey("other", salt)) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	original := []byte("SQLite format 3\x00 diary pages")

	var enc bytes.Buffer
	if err := Encrypt(&enc, bytes.NewReader(original), "pass"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(enc.Bytes(), original) {
		t.Error("ciphertext leaks plaintext")
	}
	if enc.Len() != saltSize+nonceSize+len(original)+16 {
		t.Errorf("encrypted length = %d", enc.Len())
	}

	var again bytes.Buffer
	Encrypt(&again, bytes.NewReader(original), "pass")
	if bytes.Equal(enc.Bytes()[:saltSize], again.Bytes()[:saltSize]) {
		t.Error("salt should be random per backup")
	}

	var dec bytes.Buffer
	if err := Decrypt(&dec, bytes.NewReader(enc.Bytes()), "pass"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(dec.Bytes(), original) {
		t.Errorf("decrypted = %q", dec.Bytes())
	}
}

func TestDecryptFailures(t *testing.T) {
	var enc bytes.Buffer
	if err := Encrypt(&enc, bytes.NewReader([]byte("secret data")), "correct"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	tampered := bytes.Clone(enc.Bytes())
	tampered[saltSize+nonceSize+1] ^= 0xFF

	tests := []struct {
		name       string
		data       []byte
		passphrase string
		want       error
	}{
		{"wrong passphrase", enc.Bytes(), "wrong", ErrWrongPassphrase},
		{"tampered", tampered, "correct", ErrWrongPassphrase},
		{"truncated", []byte("too short"), "correct", ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := Decrypt(&out, bytes.NewReader(tt.data), tt.passphrase)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if out.Len() != 0 {
				t.Error("nothing should be written on failure")
			}
		})
	}
}

func TestEncryptDecryptFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "diary.db")
	enc := filepath.Join(dir, "diary.db.enc")
	dec := filepath.Join(dir, "restored.db")

	if err := os.WriteFile(src, []byte{}, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := EncryptFile(src, enc, "pw"); err != nil {
		t.Fatalf("encrypt file: %v", err)
	}
	if err := DecryptFile(enc, dec, "nope"); err == nil {
		t.Fatal("expected wrong passphrase error")
	}
	if _, err := os.Stat(dec); !os.IsNotExist(err) {
		t.Error("failed decrypt should not leave an output file")
	}
	if err := DecryptFile(enc, dec, "pw"); err != nil {
		t.Fatalf("decrypt file: %v", err)
	}
	info, err := os.Stat(dec)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("restored size = %d, want 0", info.Size())
	}
}
