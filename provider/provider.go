// Package provider defines the boundary between the runtime and a concrete
// model backend. ProviderAgent is intentionally thin: it accepts a turn's
// history and options and returns either a complete reply or a Streamer of
// message.Message deltas, with no knowledge of any particular vendor's
// wire format. Vendor adapters live outside this module.
package provider

import (
	"context"

	"goa.design/convorun/message"
)

// ToolChoiceMode controls how a ProviderAgent should use the tools listed
// in GenerateReplyOptions.
type ToolChoiceMode string

const (
	ToolChoiceAuto ToolChoiceMode = "auto"
	ToolChoiceNone ToolChoiceMode = "none"
	ToolChoiceAny  ToolChoiceMode = "any"
	ToolChoiceTool ToolChoiceMode = "tool"
)

// ToolChoice constrains tool use for one generation.
type ToolChoice struct {
	Mode ToolChoiceMode
	// Name identifies the required tool when Mode is ToolChoiceTool.
	Name string
}

// ToolDefinition describes one tool made available to the provider for a
// generation.
type ToolDefinition struct {
	Name        string
	Description string
	// InputSchemaJSON is the tool's parameter schema, serialized as a JSON
	// Schema object.
	InputSchemaJSON string
}

// GenerateReplyOptions configures a single call to ProviderAgent.
// GenerateReply. The zero value requests default behavior: no tools, no
// streaming, provider-default tool choice.
type GenerateReplyOptions struct {
	Model       string
	Tools       []ToolDefinition
	ToolChoice  *ToolChoice
	MaxTokens   int
	Temperature *float64
	Stream      bool
	// SystemPrompt is prepended ahead of History for this call only; it is
	// never itself added to conversation history.
	SystemPrompt string

	// RunID, ThreadID, and ParentRunID identify the run this call belongs
	// to, so a middleware (usage enrichment, tracing) can correlate a
	// provider call back to the run without threading extra parameters
	// through ProviderAgent itself.
	RunID       string
	ThreadID    string
	ParentRunID string

	// ExtraProperties carries provider-specific request properties a
	// middleware wants applied to this call (for example
	// {"usage": {"include": true}} to request inline usage accounting).
	// Unlike every other field here, which a middleware override replaces
	// wholesale, ExtraProperties is merged key by key: see Merge.
	ExtraProperties map[string]any
}

// WithExtraProperty returns a copy of o with key set to value in
// ExtraProperties, leaving every other key untouched.
func (o GenerateReplyOptions) WithExtraProperty(key string, value any) GenerateReplyOptions {
	out := o
	out.ExtraProperties = make(map[string]any, len(o.ExtraProperties)+1)
	for k, v := range o.ExtraProperties {
		out.ExtraProperties[k] = v
	}
	out.ExtraProperties[key] = value
	return out
}

// Merge returns a new GenerateReplyOptions with every field of override
// that is non-zero taking precedence over o, leaving o's value otherwise.
// This lets a middleware layer apply a narrow override (for example,
// forcing ToolChoiceNone during a retry) without reconstructing the full
// option set. ExtraProperties is the one exception to whole-field
// replacement: it is overlaid key by key, so a middleware setting one
// property never erases properties an earlier middleware already set.
func (o GenerateReplyOptions) Merge(override GenerateReplyOptions) GenerateReplyOptions {
	out := o
	if override.Model != "" {
		out.Model = override.Model
	}
	if override.Tools != nil {
		out.Tools = override.Tools
	}
	if override.ToolChoice != nil {
		out.ToolChoice = override.ToolChoice
	}
	if override.MaxTokens != 0 {
		out.MaxTokens = override.MaxTokens
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.Stream {
		out.Stream = override.Stream
	}
	if override.SystemPrompt != "" {
		out.SystemPrompt = override.SystemPrompt
	}
	if override.RunID != "" {
		out.RunID = override.RunID
	}
	if override.ThreadID != "" {
		out.ThreadID = override.ThreadID
	}
	if override.ParentRunID != "" {
		out.ParentRunID = override.ParentRunID
	}
	if len(override.ExtraProperties) > 0 {
		merged := make(map[string]any, len(out.ExtraProperties)+len(override.ExtraProperties))
		for k, v := range out.ExtraProperties {
			merged[k] = v
		}
		for k, v := range override.ExtraProperties {
			merged[k] = v
		}
		out.ExtraProperties = merged
	}
	return out
}

// Reply is the result of a non-streaming ProviderAgent.GenerateReply call.
type Reply struct {
	Messages []message.Message
	Usage    message.Usage
}

// Streamer delivers incremental message.Message deltas for one generation.
// Callers must drain Recv until it returns io.EOF (or another terminal
// error) and then call Close.
type Streamer interface {
	// Recv returns the next streamed delta message, or an error. io.EOF
	// signals a clean end of stream.
	Recv() (message.Message, error)
	// Close releases resources held by the stream. Safe to call more than
	// once.
	Close() error
}

// ProviderAgent is the abstract boundary to a model backend. Concrete
// implementations translate History/Options into a vendor's wire format
// and translate results back into the message algebra.
type ProviderAgent interface {
	// GenerateReply performs a non-streaming generation over history.
	GenerateReply(ctx context.Context, history []message.Message, opts GenerateReplyOptions) (Reply, error)
	// StreamReply performs a streaming generation when opts.Stream is
	// true and the backend supports it.
	StreamReply(ctx context.Context, history []message.Message, opts GenerateReplyOptions) (Streamer, error)
}
