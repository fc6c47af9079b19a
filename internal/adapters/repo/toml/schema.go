package toml

import (
	"fmt"
	"time"

	"github.com/yoke233/metting/internal/domain"
)

const catalogVersion = 1

// catalog is the on-disk layout of meetings.toml: one table per meeting,
// keyed by meeting ID.
type catalog struct {
	Version  int                      `toml:"version"`
	Meetings map[string]meetingRecord `toml:"meetings"`
}

type meetingRecord struct {
	Title     string               `toml:"title,omitempty"`
	CreatedAt time.Time            `toml:"created_at"`
	Config    domain.MeetingConfig `toml:"config"`
}

func newCatalog() catalog {
	return catalog{Version: catalogVersion, Meetings: map[string]meetingRecord{}}
}

func (c *catalog) normalize() error {
	if c.Version > catalogVersion {
		return fmt.Errorf("unsupported meetings schema version %d (current %d)", c.Version, catalogVersion)
	}
	c.Version = catalogVersion
	if c.Meetings == nil {
		c.Meetings = map[string]meetingRecord{}
	}

	return nil
}

func recordOf(meeting domain.Meeting) meetingRecord {
	return meetingRecord{
		Title:     meeting.Title,
		CreatedAt: meeting.CreatedAt.UTC(),
		Config:    meeting.Config,
	}
}

func (r meetingRecord) meeting(id string) domain.Meeting {
	title := r.Title
	if title == "" {
		title = r.Config.Title
	}

	return domain.Meeting{
		ID:        domain.MeetingID(id),
		Title:     title,
		Config:    r.Config,
		CreatedAt: r.CreatedAt,
	}
}
