package claudepipe

import (
	"github.com/wagiedev/claude-pipeline-go/internal/config"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
	"github.com/wagiedev/claude-pipeline-go/internal/response"
)

// Message is one normalized record of the agent's output.
type Message = message.Message

// AssistantMessage carries content produced by the agent.
type AssistantMessage = message.AssistantMessage

// ResultMessage is the agent's closing summary of an invocation.
type ResultMessage = message.ResultMessage

// SystemMessage is a system notification. The normalizer never emits it;
// interceptors may synthesize one.
type SystemMessage = message.SystemMessage

// ContentBlock is one piece of assistant content.
type ContentBlock = message.ContentBlock

type (
	TextBlock       = message.TextBlock
	ThinkingBlock   = message.ThinkingBlock
	ToolUseBlock    = message.ToolUseBlock
	ToolResultBlock = message.ToolResultBlock
)

// Usage is the token accounting of a result message.
type Usage = message.Usage

// Cost is the reported price of an invocation.
type Cost = message.Cost

// Response is the lazy, memoized view over one query's messages.
type Response = response.Response

// UsageStats is token usage aggregated over a response.
type UsageStats = response.UsageStats

// MCPServer describes one external MCP server.
type MCPServer = config.MCPServer

// FileConfig holds defaults loaded from a YAML file and the environment.
type FileConfig = config.FileConfig

// LoadConfig reads path (skipped when empty) and CLAUDEPIPE_* environment
// variables. Environment values win.
func LoadConfig(path string) (*FileConfig, error) {
	return config.Load(path)
}

// SessionIDOf returns the session id carried by msg, or "".
func SessionIDOf(msg Message) string {
	return message.SessionIDOf(msg)
}
