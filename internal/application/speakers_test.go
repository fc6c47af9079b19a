package application

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yoke233/metting/internal/domain"
)

func TestSelectSpeakers(t *testing.T) {
	t.Parallel()

	roles := []string{"Chief Architect", "Infra Architect", "Security Architect", "Recorder"}

	tests := []struct {
		name  string
		cfg   domain.MeetingConfig
		round int
		want  []string
	}{
		{name: "round robin first", cfg: domain.MeetingConfig{Roles: roles}, round: 1, want: []string{"Chief Architect"}},
		{name: "round robin skips recorder", cfg: domain.MeetingConfig{Roles: roles}, round: 4, want: []string{"Chief Architect"}},
		{name: "round robin wraps", cfg: domain.MeetingConfig{Roles: roles}, round: 5, want: []string{"Infra Architect"}},
		{name: "round robin keeps lone discussant with recorder", cfg: domain.MeetingConfig{Roles: []string{"Skeptic", "Recorder"}}, round: 2, want: []string{"Recorder"}},
		{name: "no roles", cfg: domain.MeetingConfig{}, round: 3, want: []string{"Speaker"}},
		{name: "parallel all", cfg: domain.MeetingConfig{Roles: roles, ParallelMode: true}, round: 1, want: []string{"Chief Architect", "Infra Architect", "Security Architect"}},
		{
			name:  "parallel whitelist used as given",
			cfg:   domain.MeetingConfig{Roles: roles, ParallelMode: true, ParallelRoles: []string{"Recorder", "Skeptic"}},
			round: 2,
			want:  []string{"Recorder", "Skeptic"},
		},
		{
			name:  "parallel whitelist trims names",
			cfg:   domain.MeetingConfig{Roles: roles, ParallelMode: true, ParallelRoles: []string{" Guest ", "", "Skeptic"}},
			round: 1,
			want:  []string{"Guest", "Skeptic"},
		},
		{
			name:  "blank whitelist falls back to parallel all",
			cfg:   domain.MeetingConfig{Roles: roles, ParallelMode: true, ParallelRoles: []string{"", "  "}},
			round: 1,
			want:  []string{"Chief Architect", "Infra Architect", "Security Architect"},
		},
		{
			name:  "blank whitelist falls back to subset",
			cfg:   domain.MeetingConfig{Roles: roles, ParallelMode: true, ParallelRoles: []string{" "}, ParallelRoleLimit: 2},
			round: 1,
			want:  []string{"Chief Architect", "Infra Architect"},
		},
		{
			name:  "parallel subset first window",
			cfg:   domain.MeetingConfig{Roles: roles, ParallelMode: true, ParallelRoleLimit: 2},
			round: 1,
			want:  []string{"Chief Architect", "Infra Architect"},
		},
		{
			name:  "parallel subset rotates and wraps",
			cfg:   domain.MeetingConfig{Roles: roles, ParallelMode: true, ParallelRoleLimit: 2},
			round: 2,
			want:  []string{"Security Architect", "Chief Architect"},
		},
		{
			name:  "parallel subset limit above role count",
			cfg:   domain.MeetingConfig{Roles: roles, ParallelMode: true, ParallelRoleLimit: 9},
			round: 3,
			want:  []string{"Chief Architect", "Infra Architect", "Security Architect"},
		},
		{name: "parallel without roles", cfg: domain.MeetingConfig{ParallelMode: true}, round: 1, want: []string{"Speaker"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SelectSpeakers(tt.cfg, tt.round))
		})
	}
}
