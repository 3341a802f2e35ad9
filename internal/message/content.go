// Package message provides the typed messages and content blocks produced by
// normalizing the agent's stream-json output.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Block type constants.
const (
	BlockTypeText       = "text"
	BlockTypeThinking   = "thinking"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// ContentBlock represents a block of content within a message.
type ContentBlock interface {
	BlockType() string
}

// Compile-time verification that all content block types implement ContentBlock.
var (
	_ ContentBlock = (*TextBlock)(nil)
	_ ContentBlock = (*ThinkingBlock)(nil)
	_ ContentBlock = (*ToolUseBlock)(nil)
	_ ContentBlock = (*ToolResultBlock)(nil)
)

// TextBlock contains plain text content.
type TextBlock struct {
	Text string `json:"text"`
}

// BlockType implements the ContentBlock interface.
func (b *TextBlock) BlockType() string { return BlockTypeText }

// ThinkingBlock contains the agent's visible reasoning.
type ThinkingBlock struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature,omitempty"`
}

// BlockType implements the ContentBlock interface.
func (b *ThinkingBlock) BlockType() string { return BlockTypeThinking }

// ToolUseBlock records the agent invoking a tool.
type ToolUseBlock struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// BlockType implements the ContentBlock interface.
func (b *ToolUseBlock) BlockType() string { return BlockTypeToolUse }

// DecodeInput unmarshals the tool input into v.
func (b *ToolUseBlock) DecodeInput(v any) error {
	data, err := json.Marshal(b.Input)
	if err != nil {
		return fmt.Errorf("marshal tool input: %w", err)
	}

	return json.Unmarshal(data, v)
}

// ToolResultBlock carries the outcome of a tool invocation.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type ToolResultBlock struct {
	ToolUseID string         `json:"tool_use_id"`
	Content   []ContentBlock `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

// BlockType implements the ContentBlock interface.
func (b *ToolResultBlock) BlockType() string { return BlockTypeToolResult }

// Text concatenates the text blocks of the tool result.
func (b *ToolResultBlock) Text() string {
	var sb strings.Builder

	for _, block := range b.Content {
		if text, ok := block.(*TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}

	return sb.String()
}

// parseContentBlocks parses an array of content blocks.
func parseContentBlocks(data []any) ([]ContentBlock, error) {
	blocks := make([]ContentBlock, 0, len(data))

	for i, item := range data {
		blockData, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("content block %d: not an object", i)
		}

		blocks = append(blocks, parseContentBlock(blockData))
	}

	return blocks, nil
}

// parseContentBlock parses a single content block. Unknown or untyped blocks
// degrade to a TextBlock so newer CLI block types do not break consumers.
func parseContentBlock(data map[string]any) ContentBlock {
	blockType, _ := data["type"].(string)

	switch blockType {
	case BlockTypeThinking:
		block := &ThinkingBlock{}
		block.Thinking, _ = data["thinking"].(string)
		block.Signature, _ = data["signature"].(string)

		return block
	case BlockTypeToolUse:
		block := &ToolUseBlock{}
		block.ID, _ = data["id"].(string)
		block.Name, _ = data["name"].(string)
		block.Input, _ = data["input"].(map[string]any)

		return block
	case BlockTypeToolResult:
		return parseToolResultBlock(data)
	default:
		text, _ := data["text"].(string)

		return &TextBlock{Text: text}
	}
}

func parseToolResultBlock(data map[string]any) *ToolResultBlock {
	block := &ToolResultBlock{}
	block.ToolUseID, _ = data["tool_use_id"].(string)
	block.IsError, _ = data["is_error"].(bool)

	switch content := data["content"].(type) {
	case string:
		block.Content = []ContentBlock{&TextBlock{Text: content}}
	case []any:
		// Nested non-object entries are dropped rather than failing the record.
		for _, item := range content {
			if m, ok := item.(map[string]any); ok {
				block.Content = append(block.Content, parseContentBlock(m))
			}
		}
	}

	return block
}
