package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountConvergence(t *testing.T) {
	t.Parallel()

	latest := map[string]RoleOutput{
		"Chief Architect": {Questions: []string{"a", "b"}, DecisionRecommendation: "Kafka"},
		"Skeptic":         {Questions: []string{"c"}, DecisionRecommendation: " kafka "},
		"Infra Architect": {DecisionRecommendation: "Pulsar"},
		"Security":        {},
	}

	got := CountConvergence(latest)

	assert.Equal(t, 3, got.OpenQuestions)
	assert.Equal(t, 1, got.Disagreements)
}

func TestMeasureConvergenceBlocksStopWithoutOutputs(t *testing.T) {
	t.Parallel()

	cfg := DefaultTerminationConfig()
	got := MeasureConvergence(nil, cfg)

	assert.Equal(t, cfg.OpenQuestionsMax+1, got.OpenQuestions)
	assert.Equal(t, cfg.DisagreementsMax+1, got.Disagreements)
	assert.False(t, ShouldStop(2, false, got.OpenQuestions, got.Disagreements, cfg))
}

func TestTallyBreaksTiesLexicographically(t *testing.T) {
	t.Parallel()

	result := Tally(map[string]RoleOutput{
		"A": {DecisionRecommendation: "B"},
		"B": {DecisionRecommendation: "A"},
		"C": {DecisionRecommendation: " "},
	})

	assert.Equal(t, map[string]int{"A": 1, "B": 1}, result.Votes)
	assert.Equal(t, "A", result.Winner)
	assert.InDelta(t, 0.5, result.Score, 1e-9)
}

func TestTallyMajority(t *testing.T) {
	t.Parallel()

	result := TallyVotes(map[string]int{"Kafka": 2, "Pulsar": 1})

	assert.Equal(t, "Kafka", result.Winner)
	assert.InDelta(t, 2.0/3.0, result.Score, 1e-9)
}

func TestConsensusArtifactRationale(t *testing.T) {
	t.Parallel()

	empty := NewConsensusArtifact(1, Tally(nil))
	require.NoError(t, empty.Validate())
	assert.Equal(t, RationaleNoVotes, empty.Rationale)
	assert.Empty(t, empty.Winner)
	assert.NotNil(t, empty.Votes)

	voted := NewConsensusArtifact(2, TallyVotes(map[string]int{"Kafka": 1}))
	require.NoError(t, voted.Validate())
	assert.Equal(t, RationaleMajority, voted.Rationale)
	assert.Equal(t, "Kafka", voted.Winner)
}
