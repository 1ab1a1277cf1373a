package message

import (
	"encoding/json"
	"fmt"
)

// wire is the flat on-the-wire representation of every Message variant,
// discriminated by Kind. Unused fields are omitted by omitempty so a
// marshaled Text message, for instance, carries none of ToolsCall's
// fields. Recursive variants (Composite, Envelope) nest raw JSON so their
// inner messages round-trip through the same Encode/Decode pair.
type wire struct {
	Kind Kind `json:"kind"`

	Role            Role     `json:"role,omitempty"`
	FromAgent       string   `json:"from_agent,omitempty"`
	GenerationID    string   `json:"generation_id,omitempty"`
	ThreadID        string   `json:"thread_id,omitempty"`
	RunID           string   `json:"run_id,omitempty"`
	ParentRunID     string   `json:"parent_run_id,omitempty"`
	MessageOrderIdx int64    `json:"message_order_idx,omitempty"`
	Metadata        Metadata `json:"metadata,omitempty"`

	Content   string `json:"content,omitempty"`
	Delta     string `json:"delta,omitempty"`

	Visibility  ReasoningVisibility `json:"visibility,omitempty"`
	OpaqueToken string              `json:"opaque_token,omitempty"`

	Citations []Citation `json:"citations,omitempty"`

	Data      []byte `json:"data,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	SourceURL string `json:"source_url,omitempty"`

	ToolCallID    string          `json:"tool_call_id,omitempty"`
	Index         *int            `json:"index,omitempty"`
	Name          string          `json:"name,omitempty"`
	ArgumentsJSON string          `json:"arguments_json,omitempty"`
	Target        ExecutionTarget `json:"target,omitempty"`
	Calls         []ToolCall      `json:"calls,omitempty"`
	Updates       []ToolCallUpdate `json:"updates,omitempty"`

	Results      []ToolCallResult    `json:"results,omitempty"`
	IsError      bool                `json:"is_error,omitempty"`
	ResultBlocks []ToolResultContent `json:"result_content,omitempty"`

	Call   json.RawMessage `json:"call,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`

	Usage *Usage `json:"usage,omitempty"`

	Items []TodoItem `json:"items,omitempty"`

	Parts       []json.RawMessage `json:"parts,omitempty"`
	Inner       json.RawMessage   `json:"inner,omitempty"`
	Destination string            `json:"destination,omitempty"`
	Sequence    uint64            `json:"sequence,omitempty"`

	AssignedTo   string    `json:"assigned_to,omitempty"`
	InputIDs     []string  `json:"input_ids,omitempty"`
	WasInjected  bool      `json:"was_injected,omitempty"`
	Status       RunStatus `json:"status,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

func commonToWire(c Common) wire {
	return wire{
		Role:            c.Role,
		FromAgent:       c.FromAgent,
		GenerationID:    c.GenerationID,
		ThreadID:        c.ThreadID,
		RunID:           c.RunID,
		ParentRunID:     c.ParentRunID,
		MessageOrderIdx: c.MessageOrderIdx,
		Metadata:        c.Metadata,
	}
}

func (w wire) toCommon() Common {
	md := w.Metadata
	if md.Len() == 0 {
		md = NewMetadata()
	}
	return Common{
		Role:            w.Role,
		FromAgent:       w.FromAgent,
		GenerationID:    w.GenerationID,
		ThreadID:        w.ThreadID,
		RunID:           w.RunID,
		ParentRunID:     w.ParentRunID,
		MessageOrderIdx: w.MessageOrderIdx,
		Metadata:        md,
	}
}

// Encode serializes a Message to its JSON wire form, recursing into
// Composite parts and Envelope inner messages.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return json.Marshal(nil)
	}
	w := commonToWire(*m.Base())
	w.Kind = m.Kind()
	switch v := m.(type) {
	case *Text:
		w.Content = v.Content
	case *TextUpdate:
		w.Delta = v.Delta
	case *Reasoning:
		w.Content, w.Visibility, w.OpaqueToken = v.Content, v.Visibility, v.OpaqueToken
	case *ReasoningUpdate:
		w.Delta, w.Visibility = v.Delta, v.Visibility
	case *Image:
		w.Data, w.MediaType, w.SourceURL = v.Data, v.MediaType, v.SourceURL
	case *TextWithCitations:
		w.Content, w.Citations = v.Content, v.Citations
	case *ToolCallUpdate:
		w.ToolCallID, w.Index, w.Name, w.ArgumentsJSON, w.Target = v.ToolCallID, v.Index, v.Name, v.ArgumentsJSON, v.Target
	case *ToolsCall:
		w.Calls = v.Calls
	case *ToolsCallUpdate:
		w.Updates = v.Updates
	case *ToolsCallResult:
		w.Results = v.Results
	case *ToolsCallAggregate:
		callBytes, err := Encode(&v.Call)
		if err != nil {
			return nil, err
		}
		resultBytes, err := Encode(&v.Result)
		if err != nil {
			return nil, err
		}
		w.Call, w.Result = callBytes, resultBytes
	case *ServerToolUse:
		w.ToolCallID, w.Name, w.ArgumentsJSON = v.ToolCallID, v.Name, v.ArgumentsJSON
	case *ServerToolResult:
		w.ToolCallID, w.ResultBlocks, w.IsError = v.ToolCallID, v.Content, v.IsError
	case *UsageMessage:
		w.Usage = &v.Usage
	case *TodoContext:
		w.Items = v.Items
	case *Composite:
		for _, p := range v.Parts {
			b, err := Encode(p)
			if err != nil {
				return nil, err
			}
			w.Parts = append(w.Parts, b)
		}
	case *Envelope:
		w.Destination, w.Sequence = v.Destination, v.Sequence
		if v.Inner != nil {
			b, err := Encode(v.Inner)
			if err != nil {
				return nil, err
			}
			w.Inner = b
		}
	case *RunAssignmentMessage:
		w.AssignedTo, w.InputIDs, w.WasInjected = v.AssignedTo, v.InputIDs, v.WasInjected
	case *RunCompletedMessage:
		w.Status, w.ErrorMessage = v.Status, v.ErrorMessage
	default:
		return nil, fmt.Errorf("message: unsupported variant %T", m)
	}
	return json.Marshal(w)
}

// Decode deserializes a Message previously produced by Encode, dispatching
// on its Kind discriminator.
func Decode(data []byte) (Message, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	base := w.toCommon()
	switch w.Kind {
	case KindText:
		return &Text{Common: base, Content: w.Content}, nil
	case KindTextUpdate:
		return &TextUpdate{Common: base, Delta: w.Delta}, nil
	case KindReasoning:
		return &Reasoning{Common: base, Content: w.Content, Visibility: w.Visibility, OpaqueToken: w.OpaqueToken}, nil
	case KindReasoningUpdate:
		return &ReasoningUpdate{Common: base, Delta: w.Delta, Visibility: w.Visibility}, nil
	case KindImage:
		return &Image{Common: base, Data: w.Data, MediaType: w.MediaType, SourceURL: w.SourceURL}, nil
	case KindTextWithCitations:
		return &TextWithCitations{Common: base, Content: w.Content, Citations: w.Citations}, nil
	case KindToolCallUpdate:
		return &ToolCallUpdate{Common: base, ToolCallID: w.ToolCallID, Index: w.Index, Name: w.Name, ArgumentsJSON: w.ArgumentsJSON, Target: w.Target}, nil
	case KindToolsCall:
		return &ToolsCall{Common: base, Calls: w.Calls}, nil
	case KindToolsCallUpdate:
		return &ToolsCallUpdate{Common: base, Updates: w.Updates}, nil
	case KindToolsCallResult:
		return &ToolsCallResult{Common: base, Results: w.Results}, nil
	case KindToolsCallAggregate:
		callMsg, err := Decode(w.Call)
		if err != nil {
			return nil, err
		}
		resultMsg, err := Decode(w.Result)
		if err != nil {
			return nil, err
		}
		call, ok := callMsg.(*ToolsCall)
		if !ok {
			return nil, fmt.Errorf("message: tools_call_aggregate.call has unexpected kind %T", callMsg)
		}
		result, ok := resultMsg.(*ToolsCallResult)
		if !ok {
			return nil, fmt.Errorf("message: tools_call_aggregate.result has unexpected kind %T", resultMsg)
		}
		return &ToolsCallAggregate{Common: base, Call: *call, Result: *result}, nil
	case KindServerToolUse:
		return &ServerToolUse{Common: base, ToolCallID: w.ToolCallID, Name: w.Name, ArgumentsJSON: w.ArgumentsJSON}, nil
	case KindServerToolResult:
		return &ServerToolResult{Common: base, ToolCallID: w.ToolCallID, Content: w.ResultBlocks, IsError: w.IsError}, nil
	case KindUsageMessage:
		var u Usage
		if w.Usage != nil {
			u = *w.Usage
		}
		return &UsageMessage{Common: base, Usage: u}, nil
	case KindTodoContext:
		return &TodoContext{Common: base, Items: w.Items}, nil
	case KindComposite:
		parts := make([]Message, 0, len(w.Parts))
		for _, raw := range w.Parts {
			p, err := Decode(raw)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)
		}
		return &Composite{Common: base, Parts: parts}, nil
	case KindEnvelope:
		env := &Envelope{Common: base, Destination: w.Destination, Sequence: w.Sequence}
		if len(w.Inner) > 0 {
			inner, err := Decode(w.Inner)
			if err != nil {
				return nil, err
			}
			env.Inner = inner
		}
		return env, nil
	case KindRunAssignmentMessage:
		return &RunAssignmentMessage{Common: base, AssignedTo: w.AssignedTo, InputIDs: w.InputIDs, WasInjected: w.WasInjected}, nil
	case KindRunCompletedMessage:
		return &RunCompletedMessage{Common: base, Status: w.Status, ErrorMessage: w.ErrorMessage}, nil
	default:
		return nil, fmt.Errorf("message: unknown kind %q", w.Kind)
	}
}
