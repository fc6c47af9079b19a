// Package stub is a deterministic AgentRunner for local runs and tests.
package stub

import (
	"context"
	"fmt"
	"iter"

	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/ports"
)

var tokens = []string{"正在", "思考", "方案..."}

type Runner struct {
	clock ports.Clock
}

var _ ports.AgentRunner = (*Runner)(nil)

func NewRunner(clock ports.Clock) *Runner {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Runner{clock: clock}
}

// Run streams three fixed tokens and then echoes the task back as the
// speaker's reply.
func (r *Runner) Run(ctx context.Context, execution domain.ExecutionContext) iter.Seq2[domain.Event, error] {
	return func(yield func(domain.Event, error) bool) {
		messageID := domain.NewMessageID()
		actor := domain.AgentActor(execution.Speaker)

		for _, token := range tokens {
			if err := ctx.Err(); err != nil {
				yield(domain.Event{}, err)
				return
			}

			event := domain.NewEvent(execution.RunID, actor, r.nowMs(), domain.TokenPayload{
				Text:      token,
				MessageID: messageID,
				Role:      execution.Speaker,
			})
			if !yield(event, nil) {
				return
			}
		}

		round := execution.Round
		now := r.nowMs()
		yield(domain.NewEvent(execution.RunID, actor, now, domain.AgentMessagePayload{
			Message: domain.Message{
				Role:    domain.MessageRoleAssistant,
				Content: fmt.Sprintf("[%s] 回复: %s", execution.Speaker, execution.Task),
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
