// Package toml keeps the meeting catalog in a single TOML file shared by
// every meeting process on the host.
package toml

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"syscall"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/ports"
)

const (
	meetingsPathKey = "storage.meetings_path"
	defaultDir      = ".meeting"
	defaultFile     = "meetings.toml"
	fileMode        = 0o600
	dirMode         = 0o700
)

// Repository reads the catalog without locking, since writers replace the
// file atomically. Writers serialize on an flock of {path}.lock so a server
// and a CLI run can save meetings at the same time.
type Repository struct {
	path string
}

var _ ports.MeetingRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path := cfg.GetString(meetingsPathKey)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, defaultDir, defaultFile)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve meetings path: %w", err)
	}

	return &Repository{path: abs}, nil
}

func (r *Repository) Path() string {
	return r.path
}

// Save inserts or replaces the meeting with the same ID.
func (r *Repository) Save(ctx context.Context, meeting domain.Meeting) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := meeting.Validate(); err != nil {
		return fmt.Errorf("save meeting: %w", err)
	}

	return r.update(ctx, func(c *catalog) {
		c.Meetings[string(meeting.ID)] = recordOf(meeting)
	})
}

func (r *Repository) GetByID(ctx context.Context, id domain.MeetingID) (domain.Meeting, error) {
	if err := ctx.Err(); err != nil {
		return domain.Meeting{}, err
	}

	c, err := r.load()
	if err != nil {
		return domain.Meeting{}, err
	}
	record, ok := c.Meetings[string(id)]
	if !ok {
		return domain.Meeting{}, domain.ErrMeetingNotFound
	}

	return record.meeting(string(id)), nil
}

// List returns meetings newest first. A non-positive limit returns all.
func (r *Repository) List(ctx context.Context, limit int) ([]domain.Meeting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := r.load()
	if err != nil {
		return nil, err
	}

	meetings := make([]domain.Meeting, 0, len(c.Meetings))
	for id, record := range c.Meetings {
		meetings = append(meetings, record.meeting(id))
	}
	slices.SortFunc(meetings, func(a, b domain.Meeting) int {
		if byTime := b.CreatedAt.Compare(a.CreatedAt); byTime != 0 {
			return byTime
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(meetings) > limit {
		meetings = meetings[:limit]
	}

	return meetings, nil
}

func (r *Repository) load() (catalog, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return newCatalog(), nil
	}
	if err != nil {
		return catalog{}, fmt.Errorf("read meetings file: %w", err)
	}

	var c catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return catalog{}, fmt.Errorf("decode meetings file %s: %w", r.path, err)
	}
	if err := c.normalize(); err != nil {
		return catalog{}, err
	}

	return c, nil
}

func (r *Repository) update(ctx context.Context, mutate func(*catalog)) error {
	if err := os.MkdirAll(filepath.Dir(r.path), dirMode); err != nil {
		return fmt.Errorf("create meetings directory: %w", err)
	}

	unlock, err := lockFile(r.path + ".lock")
	if err != nil {
		return err
	}
	defer unlock()

	c, err := r.load()
	if err != nil {
		return err
	}
	mutate(&c)

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.replace(c)
}

func (r *Repository) replace(c catalog) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode meetings file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".meetings-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("create temp meetings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("restrict temp meetings file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp meetings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp meetings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace meetings file: %w", err)
	}

	return nil
}

// lockFile takes an exclusive flock, blocking until it is free.
func lockFile(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, fileMode)
	if err != nil {
		return nil, fmt.Errorf("open meetings lock: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock meetings file: %w", err)
	}

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
	}, nil
}
