package keys

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/iudanet/keepvault/internal/crypto"
	"github.com/iudanet/keepvault/internal/protect"
	"github.com/iudanet/keepvault/internal/storage"
)

// ErrEmptyPassword indicates a password source constructed from an empty string.
var ErrEmptyPassword = errors.New("password cannot be empty")

// PasswordKey is a key source derived from a master password.
type PasswordKey struct {
	hash *protect.Binary
}

// NewPasswordKey hashes the UTF-8 password. The hash stays protected in memory.
func NewPasswordKey(password string) (*PasswordKey, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return NewPasswordKeyUTF8([]byte(password))
}

// NewPasswordKeyUTF8 is NewPasswordKey for a byte slice, which is wiped.
func NewPasswordKeyUTF8(password []byte) (*PasswordKey, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	sum := crypto.Sum256(password)
	crypto.Wipe(password)
	return &PasswordKey{hash: protect.NewBinaryWiped(true, sum[:])}, nil
}

// Name implements Source.
func (p *PasswordKey) Name() string { return "password" }

// KeyData implements Source.
func (p *PasswordKey) KeyData() (*protect.Binary, error) { return p.hash, nil }

// KeyFileKey is a key source loaded from a key file.
type KeyFileKey struct {
	data *protect.Binary
	path string
}

// Name implements Source.
func (k *KeyFileKey) Name() string { return "key file " + k.path }

// KeyData implements Source.
func (k *KeyFileKey) KeyData() (*protect.Binary, error) { return k.data, nil }

// Path returns the location the key file was loaded from.
func (k *KeyFileKey) Path() string { return k.path }

// LoadKeyFile reads a key file through the byte store.
func LoadKeyFile(ctx context.Context, store storage.ByteStore, path string) (*KeyFileKey, error) {
	r, err := store.OpenRead(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	defer crypto.Wipe(content)

	return &KeyFileKey{data: protect.NewBinaryWiped(true, keyFileData(content)), path: path}, nil
}

// NewKeyFileKey interprets content the same way LoadKeyFile does.
func NewKeyFileKey(name string, content []byte) *KeyFileKey {
	return &KeyFileKey{data: protect.NewBinaryWiped(true, keyFileData(content)), path: name}
}

// keyFileData returns the 32 byte key stored in a key file:
// an XML key file, exactly 32 raw bytes, 64 hex characters,
// or the SHA-256 of arbitrary content.
func keyFileData(content []byte) []byte {
	if key, ok := parseXMLKeyFile(content); ok {
		return key
	}
	if len(content) == crypto.KeySize {
		return append([]byte(nil), content...)
	}
	if len(content) == 2*crypto.KeySize {
		if key, err := hex.DecodeString(string(content)); err == nil {
			return key
		}
	}
	sum := crypto.Sum256(content)
	return sum[:]
}

type xmlKeyFile struct {
	XMLName xml.Name `xml:"KeyFile"`
	Meta    struct {
		Version string `xml:"Version"`
	} `xml:"Meta"`
	Key struct {
		Data string `xml:"Data"`
	} `xml:"Key"`
}

const keyFileVersion = "1.00"

func parseXMLKeyFile(content []byte) ([]byte, bool) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return nil, false
	}
	var kf xmlKeyFile
	if err := xml.Unmarshal(trimmed, &kf); err != nil {
		return nil, false
	}
	key, err := base64.StdEncoding.DecodeString(kf.Key.Data)
	if err != nil || len(key) == 0 {
		return nil, false
	}
	return key, true
}

// GenerateKeyFile writes a new XML key file holding 32 random bytes.
func GenerateKeyFile(ctx context.Context, store storage.ByteStore, path string) error {
	key, err := crypto.RandomBytes(crypto.KeySize)
	if err != nil {
		return err
	}
	defer crypto.Wipe(key)

	kf := xmlKeyFile{}
	kf.Meta.Version = keyFileVersion
	kf.Key.Data = base64.StdEncoding.EncodeToString(key)

	out, err := xml.MarshalIndent(kf, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to encode key file: %w", err)
	}

	w, err := store.OpenWrite(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	if _, err := w.Write(append([]byte(xml.Header), out...)); err != nil {
		w.Close()
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return w.Close()
}

// StaticKey is a raw 32 byte key source, mostly useful for tests and
// programmatic callers.
type StaticKey struct {
	data *protect.Binary
}

// NewStaticKey wraps a 32 byte key.
func NewStaticKey(key []byte) (*StaticKey, error) {
	if len(key) != crypto.KeySize {
		return nil, fmt.Errorf("%w: static key needs %d bytes, got %d", crypto.ErrInvalidKeyLength, crypto.KeySize, len(key))
	}
	return &StaticKey{data: protect.NewBinary(true, key)}, nil
}

// Name implements Source.
func (s *StaticKey) Name() string { return "static key" }

// KeyData implements Source.
func (s *StaticKey) KeyData() (*protect.Binary, error) { return s.data, nil }
