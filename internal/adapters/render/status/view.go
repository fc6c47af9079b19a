package status

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/yoke233/metting/internal/application"
	"github.com/yoke233/metting/internal/domain"
)

const barWidth = 24

type RenderOptions struct {
	Now time.Time
}

// blocks lays the card out top to bottom. Optional blocks are skipped when
// the run has nothing to show for them.
func blocks(status application.RunStatus, opts RenderOptions, s styles) []string {
	run := status.Run
	out := []string{
		s.title.Render("Meeting Run"),
		s.header.Render(fmt.Sprintf("run: %s  meeting: %s  events: %d", run.ID, run.MeetingID, status.Events)),
		s.topic.Render(topicLine(run.Config)),
		lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render("status:"), " ", statusBadge(run.Status), " ", s.meta.Render(timing(run, opts.Now))),
		roundsLine(status.Rounds, run.Config.RoundLimit(), s),
	}

	if metric := status.Metric; metric != nil {
		out = append(out, s.section.Render(metricLines(*metric, s)))
	}
	if pause := status.Pause; pause != nil {
		out = append(out, s.section.Render(pauseLines(*pause, s)))
	}
	if failure := status.LastError; failure != nil && run.Status == domain.RunStatusFailed {
		out = append(out, s.section.Render(s.warning.Render(errorLine(*failure))))
	}

	return append(out, s.section.Render(artifactLines(status.Artifacts, s)))
}

func topicLine(cfg domain.MeetingConfig) string {
	title := strings.TrimSpace(cfg.Title)
	if title == "" {
		title = strings.TrimSpace(cfg.Topic)
	}

	return fmt.Sprintf("%s (%s)", title, strings.Join(cfg.Roles, ", "))
}

func statusBadge(status domain.RunStatus) string {
	color, ok := statusColors[status]
	if !ok {
		color = colorBright
	}

	return fg(color).Bold(true).Render(string(status))
}

func timing(run domain.Run, now time.Time) string {
	if run.StartedAt.IsZero() {
		return ""
	}
	if !run.EndedAt.IsZero() {
		return "took " + formatDuration(run.EndedAt.Sub(run.StartedAt))
	}
	if now.IsZero() {
		return "started " + run.StartedAt.Format(time.RFC3339)
	}

	return "started " + formatDuration(now.Sub(run.StartedAt)) + " ago"
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return "<1s"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func roundsLine(rounds, limit int, s styles) string {
	percent := 0.0
	if limit > 0 {
		percent = float64(rounds) / float64(limit) * 100
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.key.Render("rounds:"),
		" ",
		renderProgressBar(percent, barWidth, s),
		" ",
		s.detail.Render(fmt.Sprintf("%d/%d", rounds, limit)),
	)
}

func metricLines(metric domain.MetricPayload, s styles) string {
	parts := []string{
		s.detail.Render(fmt.Sprintf("open questions: %d  disagreements: %d", metric.OpenQuestionsCount, metric.DisagreementsCount)),
	}

	if metric.ConsensusScore != nil {
		score := *metric.ConsensusScore * 100
		scoreStyle := lipgloss.NewStyle().Foreground(interpolateColor(score, 0, 100))
		parts = append(parts, lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.key.Render("consensus:"),
			" ",
			renderProgressBar(score, barWidth, s),
			" ",
			scoreStyle.Render(fmt.Sprintf("%3.0f%%", score)),
		))
	}
	if len(metric.VoteCounts) > 0 {
		parts = append(parts, s.meta.Render("votes: "+formatVotes(metric.VoteCounts)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// formatVotes lists decisions by vote count, ties by name.
func formatVotes(votes map[string]int) string {
	decisions := make([]string, 0, len(votes))
	for decision := range votes {
		decisions = append(decisions, decision)
	}
	slices.SortFunc(decisions, func(a, b string) int {
		if votes[a] != votes[b] {
			return votes[b] - votes[a]
		}
		return strings.Compare(a, b)
	})

	parts := make([]string, 0, len(decisions))
	for _, decision := range decisions {
		parts = append(parts, fmt.Sprintf("%s=%d", decision, votes[decision]))
	}

	return strings.Join(parts, ", ")
}

func pauseLines(pause domain.PausePayload, s styles) string {
	parts := []string{
		s.warning.Render("paused: " + pause.PauseReason),
	}
	for _, question := range pause.Questions {
		marker := "-"
		if question.Required {
			marker = "*"
		}
		parts = append(parts, s.detail.Render(fmt.Sprintf("  %s %s: %s", marker, question.Key, question.Ask)))
	}
	parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render("resume token:"), " ", s.token.Render(pause.ResumeToken)))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func errorLine(failure domain.ErrorPayload) string {
	line := "error: " + failure.Message
	if failure.Stage != "" {
		line += " [" + failure.Stage + "]"
	}
	if failure.Speaker != "" {
		line += " (" + failure.Speaker + ")"
	}

	return line
}

func artifactLines(artifacts []domain.Artifact, s styles) string {
	if len(artifacts) == 0 {
		return s.empty.Render("No artifacts written yet.")
	}

	counts := map[string]int{}
	order := []string{}
	for _, artifact := range artifacts {
		label := fmt.Sprintf("%s %s", artifact.Type, artifact.Version)
		if counts[label] == 0 {
			order = append(order, label)
		}
		counts[label]++
	}

	parts := make([]string, 0, len(order))
	for _, label := range order {
		if counts[label] > 1 {
			label = fmt.Sprintf("%s x%d", label, counts[label])
		}
		parts = append(parts, label)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render("artifacts:"), " ", s.detail.Render(strings.Join(parts, ", ")))
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100.0))
	filled = max(0, min(filled, width))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// interpolateColor maps value onto the 240..255 greyscale ramp.
func interpolateColor(value, low, high float64) lipgloss.Color {
	if high == low {
		return colorBright
	}

	normalized := (value - low) / (high - low)
	normalized = max(0, min(normalized, 1))

	return lipgloss.Color(fmt.Sprintf("%d", int(240+15*normalized)))
}
