// Package openai runs meeting turns against an OpenAI-compatible chat
// completions endpoint.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/logging"
	"github.com/yoke233/metting/internal/ports"
)

const defaultHistoryMessages = 6

// SecretKey is where `meeting auth set` keeps the API key.
const SecretKey = "meeting/openai/api_key"

var ErrMissingAPIKey = errors.New("openai api key is not set")

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type Runner struct {
	client      *client
	model       string
	temperature float64
	clock       ports.Clock
	logger      *logging.Logger
}

var _ ports.AgentRunner = (*Runner)(nil)

func NewRunner(cfg Config, clock ports.Clock, logger *logging.Logger) (*Runner, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Runner{
		client:      newClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout),
		model:       model,
		temperature: cfg.Temperature,
		clock:       clock,
		logger:      logger,
	}, nil
}

// Run streams the completion as token events. When streaming fails or yields
// nothing a single non-streaming call produces the final message.
func (r *Runner) Run(ctx context.Context, execution domain.ExecutionContext) iter.Seq2[domain.Event, error] {
	return func(yield func(domain.Event, error) bool) {
		messageID := domain.NewMessageID()
		actor := domain.AgentActor(execution.Speaker)
		req := chatRequest{
			Model:       r.model,
			Messages:    buildPrompt(execution),
			Temperature: r.temperature,
		}

		stopped := false
		text, err := r.client.stream(ctx, req, func(delta string) bool {
			event := domain.NewEvent(execution.RunID, actor, r.nowMs(), domain.TokenPayload{
				Text:      delta,
				MessageID: messageID,
				Role:      execution.Speaker,
			})
			if !yield(event, nil) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}
		text = strings.TrimSpace(text)
		if err != nil {
			r.logger.Warn("stream failed, retrying without streaming", "speaker", execution.Speaker, "error", err.Error())
			text = ""
		}

		if text == "" {
			text, err = r.client.complete(ctx, req)
			if err != nil {
				yield(domain.Event{}, fmt.Errorf(
					"chat completion for %s failed, check openai.api_key and openai.base_url (most compatible services expect a /v1 suffix): %w",
					execution.Speaker, err,
				))
				return
			}
		}

		round := execution.Round
		now := r.nowMs()
		yield(domain.NewEvent(execution.RunID, actor, now, domain.AgentMessagePayload{
			Message: domain.Message{
				Role:    domain.MessageRoleAssistant,
				Content: text,
				Name:    execution.Speaker,
				TSMs:    now,
			},
			MessageID: messageID,
			Round:     &round,
		}), nil)
	}
}

func (r *Runner) nowMs() int64 {
	return r.clock.Now().UnixMilli()
}

func buildPrompt(execution domain.ExecutionContext) []chatMessage {
	limit := defaultHistoryMessages
	if execution.Limits.HistoryMaxMessages > 0 {
		limit = execution.Limits.HistoryMaxMessages
	}

	lines := make([]string, 0, limit)
	for _, message := range execution.RecentMessages(limit) {
		lines = append(lines, fmt.Sprintf("%s: %s", message.Speaker(), message.Content))
	}

	system := strings.TrimSpace(execution.SystemInstructions)
	if system == "" {
		system = fmt.Sprintf("你是%s。", execution.Speaker)
	}

	var user strings.Builder
	user.WriteString("公共摘要:\n")
	user.WriteString(strings.Join(lines, "\n"))
	user.WriteString("\n\n")
	if execution.Mode == domain.ContextModeLayered && execution.PrivateMemory != nil {
		if memory, err := json.Marshal(execution.PrivateMemory.Normalized()); err == nil {
			user.WriteString("私有记忆:\n")
			user.Write(memory)
			user.WriteString("\n\n")
		}
	}
	user.WriteString("任务:\n")
	user.WriteString(execution.Task)
	user.WriteString("\n\n")
	fmt.Fprintf(&user, "请以%s身份作答。", execution.Speaker)

	return []chatMessage{
		{Role: string(domain.MessageRoleSystem), Content: system},
		{Role: string(domain.MessageRoleUser), Content: strings.TrimSpace(user.String())},
	}
}
