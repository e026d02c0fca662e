package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

var (
	ErrTruncated       = errors.New("encrypted backup is truncated")
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted backup")
)

// DeriveKey derives an AES-256 key from passphrase and salt with Argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMem, argonPar, keySize)
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// Encrypt reads all of r and writes [salt][nonce][ciphertext] to w. A fresh
// salt and nonce are drawn for every call.
func Encrypt(w io.Writer, r io.Reader, passphrase string) error {
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read plaintext: %w", err)
	}

	header := make([]byte, saltSize+nonceSize)
	if _, err := io.ReadFull(rand.Reader, header); err != nil {
		return fmt.Errorf("generate salt and nonce: %w", err)
	}
	salt, nonce := header[:saltSize], header[saltSize:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return err
	}

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(gcm.Seal(nil, nonce, plaintext, nil)); err != nil {
		return fmt.Errorf("write ciphertext: %w", err)
	}
	return nil
}

// Decrypt reverses Encrypt.
func Decrypt(w io.Writer, r io.Reader, passphrase string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read encrypted backup: %w", err)
	}
	if len(data) < saltSize+nonceSize {
		return ErrTruncated
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return err
	}
	plaintext, err := gcm.Open(nil, nonce, data[saltSize+nonceSize:], nil)
	if err != nil {
		return ErrWrongPassphrase
	}

	if _, err := w.Write(plaintext); err != nil {
		return fmt.Errorf("write plaintext: %w", err)
	}
	return nil
}

// EncryptFile encrypts srcPath into dstPath (mode 0600).
func EncryptFile(srcPath, dstPath, passphrase string) error {
	return transformFile(srcPath, dstPath, passphrase, Encrypt)
}

// DecryptFile decrypts srcPath into dstPath (mode 0600). dstPath is not
// created when decryption fails.
func DecryptFile(srcPath, dstPath, passphrase string) error {
	return transformFile(srcPath, dstPath, passphrase, Decrypt)
}

func transformFile(srcPath, dstPath, passphrase string, fn func(io.Writer, io.Reader, string) error) error {
	in, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer in.Close()

	tmp := dstPath + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := fn(out, in, passphrase); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return os.Rename(tmp, dstPath)
}
