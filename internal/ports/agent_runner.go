package ports

import (
	"context"
	"iter"

	"github.com/yoke233/metting/internal/domain"
)

// AgentRunner executes one speaker turn. The sequence yields zero or more
// token events followed by exactly one agent_message event; a non-nil error
// ends the turn.
type AgentRunner interface {
	Run(ctx context.Context, execution domain.ExecutionContext) iter.Seq2[domain.Event, error]
}
