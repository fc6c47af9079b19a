package domain

import (
	"fmt"
	"slices"
	"strings"
)

const (
	flowSystemParticipant = "会议系统"
	defaultSpeaker        = "Speaker"
)

var roleLabels = map[string]string{
	"Chief Architect":    "首席架构师",
	"Infra Architect":    "基础设施架构师",
	"Security Architect": "安全架构师",
	"Skeptic":            "质疑者",
	"Recorder":           "书记员",
	"Speaker":            "发言者",
	"会议系统":               "会议系统",
}

func RoleLabel(role string) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}

	return role
}

// FlowStep is who spoke in one round.
type FlowStep struct {
	Round    int
	Speakers []string
}

type Flowchart struct {
	Mermaid string   `json:"mermaid"`
	Rounds  int      `json:"rounds"`
	Roles   []string `json:"roles"`
}

// GenerateFlowchart renders a mermaid sequence diagram of the meeting. Steps
// come from the recorded speaker selections; without them the rotation over
// roles is assumed for the given number of rounds.
func GenerateFlowchart(roles []string, steps []FlowStep, rounds int) Flowchart {
	if len(steps) == 0 {
		steps = rotationSteps(roles, max(1, rounds))
	}
	totalRounds := max(1, rounds, len(steps))

	participants := []string{flowSystemParticipant}
	for _, step := range steps {
		for _, speaker := range step.Speakers {
			if IsRecorder(speaker) || slices.Contains(participants, speaker) {
				continue
			}
			participants = append(participants, speaker)
		}
	}
	participants = append(participants, RecorderRole)

	aliases := make(map[string]string, len(participants))
	lines := []string{"sequenceDiagram", "  autonumber"}
	for i, participant := range participants {
		alias := fmt.Sprintf("p%d", i)
		aliases[participant] = alias
		lines = append(lines, fmt.Sprintf("  participant %s as %q", alias, RoleLabel(participant)))
	}

	system := aliases[flowSystemParticipant]
	recorder := aliases[RecorderRole]
	for _, step := range steps {
		for _, speaker := range step.Speakers {
			alias, ok := aliases[speaker]
			if !ok {
				alias = recorder
			}
			lines = append(lines,
				fmt.Sprintf("  %s->>%s: 第%d轮 发言", system, alias, step.Round),
				fmt.Sprintf("  %s-->>%s: 第%d轮 结论", alias, system, step.Round),
			)
		}
	}
	lines = append(lines,
		fmt.Sprintf("  %s->>%s: 会后整理", system, recorder),
		fmt.Sprintf("  %s-->>%s: 输出 ADR / TASKS / RISKS", recorder, system),
	)

	return Flowchart{
		Mermaid: strings.Join(lines, "\n"),
		Rounds:  totalRounds,
		Roles:   nonNil(roles),
	}
}

func rotationSteps(roles []string, rounds int) []FlowStep {
	speakers := roles
	if len(speakers) == 0 {
		speakers = []string{defaultSpeaker}
	}

	steps := make([]FlowStep, 0, rounds)
	for round := 1; round <= rounds; round++ {
		steps = append(steps, FlowStep{
			Round:    round,
			Speakers: []string{speakers[(round-1)%len(speakers)]},
		})
	}

	return steps
}
