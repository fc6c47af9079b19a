package domain

import "strings"

const roleOutputSubject = "role output"

type RoleRisk struct {
	Risk         string `json:"risk"`
	Impact       string `json:"impact"`
	Mitigation   string `json:"mitigation"`
	Verification string `json:"verification"`
}

// RoleOutput is the structured answer every non-Recorder speaker must give.
type RoleOutput struct {
	Assumptions            []string   `json:"assumptions"`
	Proposal               string     `json:"proposal"`
	Tradeoffs              []string   `json:"tradeoffs"`
	Risks                  []RoleRisk `json:"risks"`
	Questions              []string   `json:"questions"`
	DecisionRecommendation string     `json:"decision_recommendation"`
}

func ParseRoleOutput(text string) (RoleOutput, error) {
	object, err := ExtractJSONObject(roleOutputSubject, text)
	if err != nil {
		return RoleOutput{}, err
	}

	return RoleOutputFromObject(object)
}

func RoleOutputFromObject(object map[string]any) (RoleOutput, error) {
	if err := requireKeys(roleOutputSubject, object,
		"assumptions", "proposal", "tradeoffs", "risks", "questions", "decision_recommendation",
	); err != nil {
		return RoleOutput{}, err
	}

	assumptions, err := requireList(roleOutputSubject, object["assumptions"], "assumptions")
	if err != nil {
		return RoleOutput{}, err
	}
	tradeoffs, err := requireList(roleOutputSubject, object["tradeoffs"], "tradeoffs")
	if err != nil {
		return RoleOutput{}, err
	}
	questions, err := requireList(roleOutputSubject, object["questions"], "questions")
	if err != nil {
		return RoleOutput{}, err
	}
	rawRisks, err := requireList(roleOutputSubject, object["risks"], "risks")
	if err != nil {
		return RoleOutput{}, err
	}

	risks := make([]RoleRisk, 0, len(rawRisks))
	for _, entry := range rawRisks {
		risk, ok := entry.(map[string]any)
		if !ok {
			return RoleOutput{}, invalid(roleOutputSubject, "risks entries must be objects")
		}
		if err := requireKeys(roleOutputSubject, risk, "risk", "impact", "mitigation", "verification"); err != nil {
			return RoleOutput{}, err
		}
		risks = append(risks, RoleRisk{
			Risk:         stringify(risk["risk"]),
			Impact:       stringify(risk["impact"]),
			Mitigation:   stringify(risk["mitigation"]),
			Verification: stringify(risk["verification"]),
		})
	}

	return RoleOutput{
		Assumptions:            stringifyAll(assumptions),
		Proposal:               stringify(object["proposal"]),
		Tradeoffs:              stringifyAll(tradeoffs),
		Risks:                  risks,
		Questions:              stringifyAll(questions),
		DecisionRecommendation: stringify(object["decision_recommendation"]),
	}, nil
}

func (o RoleOutput) Decision() string {
	return strings.TrimSpace(o.DecisionRecommendation)
}

func stringifyAll(values []any) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, stringify(value))
	}

	return out
}
