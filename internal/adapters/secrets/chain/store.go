// Package chain layers secret backends in priority order.
package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/yoke233/metting/internal/adapters/secrets/file"
	passstore "github.com/yoke233/metting/internal/adapters/secrets/pass"
	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/ports"
)

var ErrNoBackends = errors.New("secret chain has no backends")

type Backend struct {
	Name  string
	Store ports.SecretStore
}

// Store reads from the first backend holding a key and writes to the first
// backend that accepts it. Delete clears every backend so a removed key
// cannot resurface from a lower layer.
type Store struct {
	backends []Backend
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(backends ...Backend) (*Store, error) {
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}
	for i, backend := range backends {
		if backend.Store == nil {
			return nil, fmt.Errorf("secret backend %d (%s) is nil", i, backend.Name)
		}
	}

	return &Store{backends: backends}, nil
}

// NewDefaultStore prefers pass and keeps credentials.toml under fileRoot for
// hosts without it.
func NewDefaultStore(fileRoot string, passPrefix string) (*Store, error) {
	return NewStore(
		Backend{Name: "pass", Store: passstore.NewStore(passstore.WithPrefix(passPrefix))},
		Backend{Name: "file", Store: filestore.NewStore(fileRoot)},
	)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	for _, backend := range s.backends {
		value, err := backend.Store.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if isContextError(err) {
			return "", err
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name, err))
	}

	return "", fmt.Errorf("get secret %q: %w", key, errors.Join(errs...))
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	var errs []error
	for _, backend := range s.backends {
		err := backend.Store.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if isContextError(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name, err))
	}

	return fmt.Errorf("put secret %q: %w", key, errors.Join(errs...))
}

func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, backend := range s.backends {
		err := backend.Store.Delete(ctx, key)
		switch {
		case err == nil, errors.Is(err, domain.ErrSecretNotFound), errors.Is(err, passstore.ErrUnavailable):
			continue
		case isContextError(err):
			return err
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("delete secret %q: %w", key, errors.Join(errs...))
	}

	return nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
