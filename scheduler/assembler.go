package scheduler

import (
	"fmt"

	"goa.design/convorun/message"
	"goa.design/convorun/streambuild"
)

// turnAssembler reassembles one provider turn's streamed deltas into their
// completed messages, in the order each item first appears, so executeRun
// can inspect the turn's pending tool calls once the stream drains without
// the scheduler needing to understand streambuild's per-kind builders
// itself.
type turnAssembler struct {
	builders []streambuild.Builder
	toolIdx  int
}

func newTurnAssembler() *turnAssembler {
	return &turnAssembler{toolIdx: -1}
}

// feed routes a streamed delta to the builder already accumulating its
// item, opening a new builder the first time an item is seen.
func (a *turnAssembler) feed(m message.Message) error {
	for _, b := range a.builders {
		if b.Accepts(m) {
			return b.Feed(m)
		}
	}
	var b streambuild.Builder
	switch u := m.(type) {
	case *message.TextUpdate:
		b = streambuild.NewTextBuilder(*u)
	case *message.ReasoningUpdate:
		b = streambuild.NewReasoningBuilder(*u)
	case *message.ToolsCallUpdate:
		tb := streambuild.NewToolsCallBuilder()
		if err := tb.Feed(u); err != nil {
			return err
		}
		b = tb
		a.toolIdx = len(a.builders)
	case *message.ToolCallUpdate:
		tb := streambuild.NewToolsCallBuilder()
		if err := tb.Feed(&message.ToolsCallUpdate{Common: u.Common, Updates: []message.ToolCallUpdate{*u}}); err != nil {
			return err
		}
		b = tb
		a.toolIdx = len(a.builders)
	default:
		return fmt.Errorf("scheduler: turn assembler got unexpected delta %T", m)
	}
	a.builders = append(a.builders, b)
	return nil
}

// pendingLocalToolCalls returns every ExecutionLocalFunction call the
// stream just assembled. It is safe to call more than once; building does
// not reset the underlying streambuild.Builder's accumulated state.
func (a *turnAssembler) pendingLocalToolCalls() []message.ToolCall {
	if a.toolIdx < 0 {
		return nil
	}
	var out []message.ToolCall
	for _, b := range a.builders {
		tc, ok := b.Build().(*message.ToolsCall)
		if !ok {
			continue
		}
		for _, c := range tc.Calls {
			if c.Target == message.ExecutionLocalFunction {
				out = append(out, c)
			}
		}
	}
	return out
}
