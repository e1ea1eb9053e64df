package loop

import (
	"github.com/cloudwego/eino/schema"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
)

// Hooks receives run events for observability. All fields are optional and
// never affect control flow.
type Hooks struct {
	OnModelCall func(round int, out *schema.Message, err error)
	OnToolCall  func(record model.ToolCallRecord)
	OnRoundEnd  func(round int, state State)
}

func (h Hooks) modelCall(round int, out *schema.Message, err error) {
	if h.OnModelCall != nil {
		h.OnModelCall(round, out, err)
	}
}

func (h Hooks) toolCall(record model.ToolCallRecord) {
	if h.OnToolCall != nil {
		h.OnToolCall(record)
	}
}

func (h Hooks) roundEnd(round int, state State) {
	if h.OnRoundEnd != nil {
		h.OnRoundEnd(round, state)
	}
}
