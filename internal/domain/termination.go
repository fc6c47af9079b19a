package domain

type TerminationConfig struct {
	MaxRounds        int
	MinRounds        int
	OpenQuestionsMax int
	DisagreementsMax int
}

func DefaultTerminationConfig() TerminationConfig {
	return TerminationConfig{
		MaxRounds:        DefaultMaxRounds,
		MinRounds:        1,
		OpenQuestionsMax: DefaultOpenQuestionsMax,
		DisagreementsMax: DefaultDisagreementsMax,
	}
}

// ShouldStop decides, after a completed round, whether the loop ends. The
// minimum round floor wins over every other signal.
func ShouldStop(round int, artifactsValid bool, openQuestions, disagreements int, cfg TerminationConfig) bool {
	if round < cfg.MinRounds {
		return false
	}
	if round >= cfg.MaxRounds {
		return true
	}
	if artifactsValid {
		return true
	}

	return openQuestions <= cfg.OpenQuestionsMax && disagreements <= cfg.DisagreementsMax
}

func NewMetricPayload(c Convergence, consensus *ConsensusResult) MetricPayload {
	payload := MetricPayload{
		OpenQuestionsCount: c.OpenQuestions,
		DisagreementsCount: c.Disagreements,
	}
	if consensus != nil {
		score := consensus.Score
		payload.ConsensusScore = &score
		payload.VoteCounts = consensus.Votes
		if payload.VoteCounts == nil {
			payload.VoteCounts = map[string]int{}
		}
	}

	return payload
}
