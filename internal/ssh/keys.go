// Package ssh manages the login key pair installed on the workstation.
package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// KeyPair represents an SSH key pair on disk
type KeyPair struct {
	PrivateKeyPath string
	PublicKeyPath  string
	PublicKey      string
}

// ParsePublicKey parses a single OpenSSH authorized_keys line.
func ParsePublicKey(authorizedKey string) (ssh.PublicKey, error) {
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(authorizedKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return key, nil
}

// Fingerprint returns the SHA256 fingerprint of an authorized_keys line, as
// printed by ssh-keygen -l.
func Fingerprint(authorizedKey string) (string, error) {
	key, err := ParsePublicKey(authorizedKey)
	if err != nil {
		return "", err
	}
	return ssh.FingerprintSHA256(key), nil
}

// GetOrGenerateKeyPair returns the key pair named name in keyDir, generating an
// ed25519 pair when the private key does not exist yet.
func GetOrGenerateKeyPair(keyDir, name, comment string) (*KeyPair, error) {
	if err := os.MkdirAll(keyDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	privateKeyPath := filepath.Join(keyDir, name)
	publicKeyPath := privateKeyPath + ".pub"

	if _, err := os.Stat(privateKeyPath); err == nil {
		if data, err := os.ReadFile(publicKeyPath); err == nil {
			return &KeyPair{
				PrivateKeyPath: privateKeyPath,
				PublicKeyPath:  publicKeyPath,
				PublicKey:      strings.TrimSpace(string(data)),
			}, nil
		}
		return derivePublicKey(privateKeyPath, publicKeyPath, comment)
	}

	return generateKeyPair(privateKeyPath, publicKeyPath, comment)
}

func generateKeyPair(privateKeyPath, publicKeyPath, comment string) (*KeyPair, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(privateKey, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to encode private key: %w", err)
	}
	if err := os.WriteFile(privateKeyPath, pem.EncodeToMemory(block), 0600); err != nil {
		return nil, fmt.Errorf("failed to write private key: %w", err)
	}

	signer, err := ssh.NewSignerFromKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}
	return writePublicKey(privateKeyPath, publicKeyPath, signer.PublicKey(), comment)
}

// derivePublicKey rewrites a missing .pub file from the private key.
func derivePublicKey(privateKeyPath, publicKeyPath, comment string) (*KeyPair, error) {
	data, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return writePublicKey(privateKeyPath, publicKeyPath, signer.PublicKey(), comment)
}

func writePublicKey(privateKeyPath, publicKeyPath string, key ssh.PublicKey, comment string) (*KeyPair, error) {
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))
	if comment != "" {
		line += " " + comment
	}
	if err := os.WriteFile(publicKeyPath, []byte(line+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("failed to write public key: %w", err)
	}

	return &KeyPair{
		PrivateKeyPath: privateKeyPath,
		PublicKeyPath:  publicKeyPath,
		PublicKey:      line,
	}, nil
}

// Cleanup removes the key files
func (kp *KeyPair) Cleanup() error {
	if err := os.Remove(kp.PrivateKeyPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove private key: %w", err)
	}
	if err := os.Remove(kp.PublicKeyPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove public key: %w", err)
	}
	return nil
}
