package domain

// Memory is one role's private notebook inside a run. Each write stores a
// full snapshot.
type Memory struct {
	Assumptions   []string   `json:"assumptions"`
	Notes         []string   `json:"notes"`
	PendingChecks []string   `json:"pending_checks"`
	RisksPool     []RoleRisk `json:"risks_pool"`
	Drafts        []string   `json:"drafts"`
}

type RoleMemory struct {
	Role      string `json:"role_name"`
	Memory    Memory `json:"content"`
	UpdatedMs int64  `json:"updated_ts_ms"`
}

func (m Memory) Normalized() Memory {
	return Memory{
		Assumptions:   nonNil(m.Assumptions),
		Notes:         nonNil(m.Notes),
		PendingChecks: nonNil(m.PendingChecks),
		RisksPool:     nonNil(m.RisksPool),
		Drafts:        nonNil(m.Drafts),
	}
}

func (m Memory) IsEmpty() bool {
	return len(m.Assumptions) == 0 && len(m.Notes) == 0 && len(m.PendingChecks) == 0 &&
		len(m.RisksPool) == 0 && len(m.Drafts) == 0
}

// MergeMemory folds a parsed role output into a copy of the snapshot and
// keeps only the newest maxItems entries of every list.
func MergeMemory(existing Memory, output RoleOutput, maxItems int) Memory {
	merged := existing.Normalized()

	merged.Assumptions = appendCopy(merged.Assumptions, output.Assumptions...)
	merged.PendingChecks = appendCopy(merged.PendingChecks, output.Questions...)
	merged.RisksPool = appendCopy(merged.RisksPool, output.Risks...)
	if output.Proposal != "" {
		merged.Drafts = appendCopy(merged.Drafts, output.Proposal)
	}

	notes := make([]string, 0, len(output.Tradeoffs)+1)
	if output.DecisionRecommendation != "" {
		notes = append(notes, output.DecisionRecommendation)
	}
	for _, tradeoff := range output.Tradeoffs {
		if tradeoff != "" {
			notes = append(notes, tradeoff)
		}
	}
	merged.Notes = appendCopy(merged.Notes, notes...)

	return Memory{
		Assumptions:   keepLast(merged.Assumptions, maxItems),
		Notes:         keepLast(merged.Notes, maxItems),
		PendingChecks: keepLast(merged.PendingChecks, maxItems),
		RisksPool:     keepLast(merged.RisksPool, maxItems),
		Drafts:        keepLast(merged.Drafts, maxItems),
	}
}

func appendCopy[T any](base []T, items ...T) []T {
	out := make([]T, 0, len(base)+len(items))
	out = append(out, base...)

	return append(out, items...)
}

func keepLast[T any](items []T, maxItems int) []T {
	if maxItems <= 0 {
		return []T{}
	}
	if len(items) <= maxItems {
		return items
	}

	return append([]T(nil), items[len(items)-maxItems:]...)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
