package application

import (
	"github.com/yoke233/metting/internal/domain"
)

const defaultSpeaker = "Speaker"

// SelectSpeakers returns who talks in a round under the meeting's strategy.
// The result is never empty.
func SelectSpeakers(cfg domain.MeetingConfig, round int) []string {
	switch cfg.Strategy() {
	case domain.StrategyParallelWhitelist:
		return cfg.Whitelist()
	case domain.StrategyParallelSubset:
		if speakers := rotatingWindow(discussants(cfg.Roles), cfg.ParallelRoleLimit, round); len(speakers) > 0 {
			return speakers
		}
	case domain.StrategyParallelAll:
		if speakers := discussants(cfg.Roles); len(speakers) > 0 {
			return speakers
		}
	}

	return []string{roundRobin(cfg.Roles, round)}
}

func roundRobin(roles []string, round int) string {
	eligible := roles
	if speakers := discussants(roles); len(speakers) > 1 {
		eligible = speakers
	}
	if len(eligible) == 0 {
		return defaultSpeaker
	}

	return eligible[(max(round, 1)-1)%len(eligible)]
}

// rotatingWindow takes size consecutive roles starting where the previous
// round's window ended, wrapping around the list.
func rotatingWindow(roles []string, size, round int) []string {
	if len(roles) == 0 || size <= 0 {
		return nil
	}
	size = min(size, len(roles))
	start := ((max(round, 1) - 1) * size) % len(roles)

	window := make([]string, 0, size)
	for i := range size {
		window = append(window, roles[(start+i)%len(roles)])
	}

	return window
}

func discussants(roles []string) []string {
	speakers := make([]string, 0, len(roles))
	for _, role := range roles {
		if !domain.IsRecorder(role) {
			speakers = append(speakers, role)
		}
	}

	return speakers
}
