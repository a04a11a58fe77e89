package utils

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// DefaultKeyBits is the size of generated rsa keys
const DefaultKeyBits = 4096

// GeneratePrivateKey generate an rsa key (actually used from the sshd server)
func GeneratePrivateKey(bits int) (*rsa.PrivateKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	if err := privateKey.Validate(); err != nil {
		return nil, err
	}
	return privateKey, nil
}

// EncodePrivateKeyToPEM converts a private key object to PEM
func EncodePrivateKeyToPEM(privateKey *rsa.PrivateKey) []byte {
	privDER := x509.MarshalPKCS1PrivateKey(privateKey)

	privBlock := pem.Block{
		Type:    "RSA PRIVATE KEY",
		Headers: nil,
		Bytes:   privDER,
	}
	return pem.EncodeToMemory(&privBlock)
}

// GeneratePublicKey generates a public key in authorized_keys format
// from a private one
func GeneratePublicKey(key *rsa.PublicKey) ([]byte, error) {
	publicRsaKey, err := ssh.NewPublicKey(key)
	if err != nil {
		return nil, err
	}
	return ssh.MarshalAuthorizedKey(publicRsaKey), nil
}

// WriteKeyToFile stores a key to the specified path
func WriteKeyToFile(keyBytes []byte, keyPath string) error {
	path, err := ExpandUserHome(keyPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, keyBytes, 0600)
}

// LoadHostKey reads the private key at keyPath. When the file does not
// exist a new key pair is generated and stored at keyPath and
// keyPath.pub. generated reports whether that happened
func LoadHostKey(keyPath string, bits int) (signer ssh.Signer, generated bool, err error) {
	path, err := ExpandUserHome(keyPath)
	if err != nil {
		return nil, false, err
	}
	encoded, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		key, err := GeneratePrivateKey(bits)
		if err != nil {
			return nil, false, err
		}
		encoded = EncodePrivateKeyToPEM(key)
		if err := WriteKeyToFile(encoded, path); err != nil {
			return nil, false, err
		}
		// this is the one to use in the known_hosts file
		publicKey, err := GeneratePublicKey(&key.PublicKey)
		if err != nil {
			return nil, false, err
		}
		if err := WriteKeyToFile(publicKey, path+".pub"); err != nil {
			return nil, false, err
		}
		generated = true
	} else if err != nil {
		return nil, false, err
	}

	signer, err = ssh.ParsePrivateKey(encoded)
	if err != nil {
		return nil, false, fmt.Errorf("cannot parse host key %s: %w", path, err)
	}
	return signer, generated, nil
}

// LoadAuthorizedKeys parses an authorized_keys file into a set keyed by
// the wire encoding of each key
func LoadAuthorizedKeys(keysPath string) (map[string]bool, error) {
	path, err := ExpandUserHome(keysPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	keys := map[string]bool{}
	for len(data) > 0 {
		pubKey, _, _, rest, err := ssh.ParseAuthorizedKey(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		keys[string(pubKey.Marshal())] = true
		data = rest
	}
	return keys, nil
}

// SerializePublicKey converts an ssh.PublicKey to printable bas64 string
func SerializePublicKey(k ssh.PublicKey) string {
	return k.Type() + " " + base64.StdEncoding.EncodeToString(k.Marshal())
}
