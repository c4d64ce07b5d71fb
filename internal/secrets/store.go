package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const fileName = "token.json"

// ErrNoToken means nobody is logged in.
var ErrNoToken = errors.New("secrets: no stored token")

// Store keeps the access token under dir in a 0600 file, sealed with
// AES-GCM so it is never on disk in plain text.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

type tokenFile struct {
	Token   string    `json:"token"` // base64(nonce || sealed)
	Email   string    `json:"email,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// Token is a decrypted stored session.
type Token struct {
	Value   string
	Email   string
	SavedAt time.Time
}

func (s *Store) SaveToken(email, token string) error {
	if token = strings.TrimSpace(token); token == "" {
		return fmt.Errorf("secrets: token required")
	}
	path, err := s.filePath()
	if err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	sealed, err := sealToken(email, token)
	if err != nil {
		return err
	}
	return save(path, tokenFile{
		Token:   sealed,
		Email:   email,
		SavedAt: time.Now().UTC().Truncate(time.Second),
	})
}

func (s *Store) LoadToken() (Token, error) {
	path, err := s.filePath()
	if err != nil {
		return Token{}, err
	}
	tf, err := load(path)
	if err != nil {
		return Token{}, err
	}
	if tf.Token == "" {
		return Token{}, ErrNoToken
	}
	value, err := openToken(tf)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: value, Email: tf.Email, SavedAt: tf.SavedAt}, nil
}

// DeleteToken removes the stored token. Deleting a missing token is not an error.
func (s *Store) DeleteToken() error {
	path, err := s.filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) filePath() (string, error) {
	dir := s.dir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "scandraw")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil { // restrict directory
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

func load(path string) (tokenFile, error) {
	var tf tokenFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tokenFile{}, nil
		}
		return tf, err
	}
	if err := json.Unmarshal(data, &tf); err != nil {
		return tf, err
	}
	return tf, nil
}

func save(path string, tf tokenFile) error {
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// tokenCipher derives a per-user key for sealing access tokens.
func tokenCipher() (cipher.AEAD, error) {
	key := sha256.Sum256([]byte("scandraw-token:" + runtime.GOOS + ":" + os.Getenv("USER")))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// sealToken encrypts token with email as associated data, so a stored token
// cannot be reattributed to another account by editing the file.
func sealToken(email, token string) (string, error) {
	aead, err := tokenCipher()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(token)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(token), []byte(email))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func openToken(tf tokenFile) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(tf.Token)
	if err != nil {
		return "", fmt.Errorf("secrets: decode token: %w", err)
	}
	aead, err := tokenCipher()
	if err != nil {
		return "", err
	}
	n := aead.NonceSize()
	if len(raw) < n+aead.Overhead() {
		return "", errors.New("secrets: stored token truncated")
	}
	plain, err := aead.Open(nil, raw[:n], raw[n:], []byte(tf.Email))
	if err != nil {
		return "", fmt.Errorf("secrets: decrypt token: %w", err)
	}
	return string(plain), nil
}
