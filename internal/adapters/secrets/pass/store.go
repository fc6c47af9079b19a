// Package pass reads and writes secrets through the pass(1) password manager.
package pass

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/ports"
)

var ErrUnavailable = errors.New("pass command unavailable")

const notInStoreMarker = "is not in the password store"

type commandRunner func(ctx context.Context, stdin string, args ...string) (stdout string, stderr string, err error)

type Store struct {
	prefix string
	run    commandRunner
}

type Option func(*Store)

// WithPrefix files every entry under a directory of the password store, so
// meeting/openai/api_key becomes {prefix}/meeting/openai/api_key.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = strings.Trim(prefix, "/")
	}
}

func withRunner(run commandRunner) Option {
	return func(s *Store) {
		s.run = run
	}
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(opts ...Option) *Store {
	s := &Store{run: execPass}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) entry(key string) string {
	if s.prefix == "" {
		return key
	}

	return s.prefix + "/" + key
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, stderr, err := s.run(ctx, strings.TrimSpace(value)+"\n", "insert", "--multiline", "--force", s.entry(key))
	if err != nil {
		return commandError("insert", s.entry(key), err, stderr)
	}

	return nil
}

// Get returns the first line of the entry; anything below it is metadata.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := s.entry(key)
	stdout, stderr, err := s.run(ctx, "", "show", name)
	if err != nil {
		if strings.Contains(stderr, notInStoreMarker) {
			return "", fmt.Errorf("pass entry %q: %w", name, domain.ErrSecretNotFound)
		}
		return "", commandError("show", name, err, stderr)
	}

	line, _, _ := bufio.NewReader(strings.NewReader(stdout)).ReadLine()
	value := strings.TrimSpace(string(line))
	if value == "" {
		return "", fmt.Errorf("pass entry %q is empty: %w", name, domain.ErrSecretNotFound)
	}

	return value, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := s.entry(key)
	_, stderr, err := s.run(ctx, "", "rm", "--force", name)
	if err != nil {
		if strings.Contains(stderr, notInStoreMarker) {
			return fmt.Errorf("pass entry %q: %w", name, domain.ErrSecretNotFound)
		}
		return commandError("rm", name, err, stderr)
	}

	return nil
}

func execPass(ctx context.Context, stdin string, args ...string) (string, string, error) {
	bin, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	err = cmd.Run()

	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

func commandError(op string, name string, err error, stderr string) error {
	if stderr != "" {
		return fmt.Errorf("pass %s %q: %w: %s", op, name, err, stderr)
	}

	return fmt.Errorf("pass %s %q: %w", op, name, err)
}
