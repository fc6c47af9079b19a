// Package file keeps secrets in an owner-only TOML file for hosts without a
// password manager.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/ports"
)

const (
	FileName      = "credentials.toml"
	storeDirMode  = 0o700
	secretFileMod = 0o600
)

var ErrInvalidKey = errors.New("invalid secret key")

type credentials struct {
	Secrets map[string]string `toml:"secrets"`
}

// Store holds every secret of the meeting home in {root}/credentials.toml.
// Writes replace the file atomically.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{path: filepath.Join(filepath.Clean(root), FileName)}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("file secret %q: value is empty", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.load()
	if err != nil {
		return err
	}
	creds.Secrets[key] = value

	return s.save(creds)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateKey(key); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.load()
	if err != nil {
		return "", err
	}
	value := strings.TrimSpace(creds.Secrets[key])
	if value == "" {
		return "", fmt.Errorf("file secret %q: %w", key, domain.ErrSecretNotFound)
	}

	return value, nil
}

// Delete is idempotent. The file goes away with its last secret.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := creds.Secrets[key]; !ok {
		return nil
	}
	delete(creds.Secrets, key)

	if len(creds.Secrets) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove credentials file: %w", err)
		}
		return nil
	}

	return s.save(creds)
}

func (s *Store) load() (credentials, error) {
	creds := credentials{Secrets: map[string]string{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return creds, nil
		}
		return credentials{}, fmt.Errorf("read credentials file: %w", err)
	}
	if err := toml.Unmarshal(data, &creds); err != nil {
		return credentials{}, fmt.Errorf("decode credentials file %s: %w", s.path, err)
	}
	if creds.Secrets == nil {
		creds.Secrets = map[string]string{}
	}

	return creds, nil
}

func (s *Store) save(creds credentials) error {
	data, err := toml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, storeDirMode); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".credentials-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("create temp credentials file: %w", err)
	}
	tempName := tempFile.Name()
	defer os.Remove(tempName)

	if err := tempFile.Chmod(secretFileMod); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("restrict temp credentials file: %w", err)
	}
	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp credentials file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp credentials file: %w", err)
	}
	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}

	return nil
}

// validateKey accepts slash separated names such as meeting/openai/api_key.
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") || strings.Contains(key, "//") {
		return fmt.Errorf("%w %q", ErrInvalidKey, key)
	}
	for _, r := range key {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w %q: contains whitespace", ErrInvalidKey, key)
		}
	}

	return nil
}
