package domain

import (
	"sort"
	"strings"
)

const (
	RationaleMajority = "多数票收敛"
	RationaleNoVotes  = "无有效投票"
)

type Convergence struct {
	OpenQuestions int
	Disagreements int
}

// CountConvergence sums questions and counts distinct decisions across the
// latest output of every role.
func CountConvergence(latest map[string]RoleOutput) Convergence {
	result := Convergence{}
	decisions := map[string]struct{}{}
	for _, output := range latest {
		result.OpenQuestions += len(output.Questions)
		if decision := strings.ToLower(output.Decision()); decision != "" {
			decisions[decision] = struct{}{}
		}
	}
	result.Disagreements = max(0, len(decisions)-1)

	return result
}

// MeasureConvergence is CountConvergence with the empty-run guard: before any
// role produced a parsed output both counters sit just above their thresholds.
func MeasureConvergence(latest map[string]RoleOutput, cfg TerminationConfig) Convergence {
	if len(latest) == 0 {
		return Convergence{
			OpenQuestions: cfg.OpenQuestionsMax + 1,
			Disagreements: cfg.DisagreementsMax + 1,
		}
	}

	return CountConvergence(latest)
}

type ConsensusResult struct {
	Votes  map[string]int
	Winner string
	Score  float64
}

// Tally counts trimmed decision recommendations. The winner has the most
// votes; ties go to the lexicographically smallest label.
func Tally(outputs map[string]RoleOutput) ConsensusResult {
	votes := map[string]int{}
	for _, output := range outputs {
		if decision := output.Decision(); decision != "" {
			votes[decision]++
		}
	}

	return TallyVotes(votes)
}

func TallyVotes(votes map[string]int) ConsensusResult {
	if len(votes) == 0 {
		return ConsensusResult{Votes: map[string]int{}}
	}

	labels := make([]string, 0, len(votes))
	total := 0
	for label, count := range votes {
		labels = append(labels, label)
		total += count
	}
	sort.Slice(labels, func(i, j int) bool {
		if votes[labels[i]] != votes[labels[j]] {
			return votes[labels[i]] > votes[labels[j]]
		}
		return labels[i] < labels[j]
	})

	winner := labels[0]
	score := 0.0
	if total > 0 {
		score = float64(votes[winner]) / float64(total)
	}

	return ConsensusResult{Votes: votes, Winner: winner, Score: score}
}

type ConsensusArtifact struct {
	Round     int            `json:"round"`
	Votes     map[string]int `json:"votes"`
	Winner    string         `json:"winner"`
	Rationale string         `json:"rationale"`
}

func NewConsensusArtifact(round int, result ConsensusResult) ConsensusArtifact {
	rationale := RationaleNoVotes
	if result.Winner != "" {
		rationale = RationaleMajority
	}

	votes := result.Votes
	if votes == nil {
		votes = map[string]int{}
	}

	return ConsensusArtifact{
		Round:     round,
		Votes:     votes,
		Winner:    result.Winner,
		Rationale: rationale,
	}
}

func (c ConsensusArtifact) Validate() error {
	if c.Round < 1 {
		return invalid("consensus", "round must be >= 1")
	}
	if c.Votes == nil {
		return invalid("consensus", "votes must be dict")
	}
	if c.Winner == "" && c.Rationale != RationaleNoVotes {
		return invalid("consensus", "winner is required when votes were cast")
	}
	if c.Rationale == "" {
		return invalid("consensus", "rationale is required")
	}

	return nil
}
