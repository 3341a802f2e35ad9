package message

// Message represents any message in the normalized stream.
// Use a type switch to determine the concrete type.
type Message interface {
	MessageType() string
}

// Compile-time verification that all message types implement Message.
var (
	_ Message = (*AssistantMessage)(nil)
	_ Message = (*ResultMessage)(nil)
	_ Message = (*SystemMessage)(nil)
)

// AssistantMessage is one assistant turn: its content blocks and the session
// it belongs to.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type AssistantMessage struct {
	Content   []ContentBlock `json:"content"`
	SessionID string         `json:"session_id,omitempty"`
}

// MessageType implements the Message interface.
func (m *AssistantMessage) MessageType() string { return "assistant" }

// ResultMessage is the final record of an invocation.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type ResultMessage struct {
	Subtype    string `json:"subtype"`
	Content    string `json:"content"`
	SessionID  string `json:"session_id,omitempty"`
	Usage      *Usage `json:"usage,omitempty"`
	Cost       Cost   `json:"cost"`
	IsError    bool   `json:"is_error"`
	DurationMs int    `json:"duration_ms"`
	NumTurns   int    `json:"num_turns"`
}

// MessageType implements the Message interface.
func (m *ResultMessage) MessageType() string { return "result" }

// SystemMessage carries process metadata. Normalize suppresses system records;
// the type exists for middleware that synthesizes messages of its own.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type SystemMessage struct {
	Subtype   string         `json:"subtype,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// MessageType implements the Message interface.
func (m *SystemMessage) MessageType() string { return "system" }

// Usage contains token usage counters. Raw keeps the record exactly as the
// agent reported it.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type Usage struct {
	InputTokens              int            `json:"input_tokens"`
	OutputTokens             int            `json:"output_tokens"`
	CacheCreationInputTokens int            `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int            `json:"cache_read_input_tokens,omitempty"`
	Raw                      map[string]any `json:"-"`
}

// Cost is the monetary cost of an invocation in USD.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type Cost struct {
	TotalUSD float64 `json:"total_cost_usd"`
}

// SessionIDOf returns the session identifier carried by msg, if any.
func SessionIDOf(msg Message) string {
	switch m := msg.(type) {
	case *AssistantMessage:
		return m.SessionID
	case *ResultMessage:
		return m.SessionID
	case *SystemMessage:
		return m.SessionID
	default:
		return ""
	}
}
