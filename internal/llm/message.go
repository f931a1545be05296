// Package llm defines the conversation data model exchanged with the
// completion model and the client that drives single completion calls.
//
// The atomic unit is ContentBlock, a tagged union of text, image, document,
// tool-use and tool-result variants. Messages are ordered block sequences
// with a role; the orchestrator owns and grows the message sequence, this
// package never mutates it.
package llm

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks caller-authored messages, including tool results.
	RoleUser Role = "user"

	// RoleAssistant marks model-authored messages.
	RoleAssistant Role = "model"
)

// ToolResultStatus reports whether a tool invocation succeeded.
type ToolResultStatus string

const (
	ToolResultSuccess ToolResultStatus = "success"
	ToolResultError   ToolResultStatus = "error"
)

// ContentBlock is a tagged union: exactly one variant is set.
// A block with no other variant set is a text block (Text may be empty).
// JSON is only valid inside tool-result content.
type ContentBlock struct {
	Text       string
	JSON       map[string]any
	Image      *ImageBlock
	Document   *DocumentBlock
	ToolUse    *ToolUseBlock
	ToolResult *ToolResultBlock
}

// ImageBlock carries raw image bytes with a normalized format
// ("jpeg", "png", "gif", "webp").
type ImageBlock struct {
	Format string
	Data   []byte
}

// DocumentBlock carries raw document bytes with a normalized format
// ("pdf", "csv", "doc", "docx", "xls", "xlsx", "html", "txt", "md").
type DocumentBlock struct {
	Format string
	Name   string
	Data   []byte
}

// ToolUseBlock is a model request to invoke a named tool.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResultBlock answers exactly one ToolUseBlock, matched by ToolUseID.
// ToolName repeats the invoked tool's name because the provider pairs
// function responses by name. Content is never empty: error results carry a
// single text block with the failure message.
type ToolResultBlock struct {
	ToolUseID string
	ToolName  string
	Status    ToolResultStatus
	Content   []ContentBlock
}

// Message is an ordered sequence of content blocks with an author role.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// NewTextBlock returns a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Text: text}
}

// NewImageBlock returns an image content block.
func NewImageBlock(format string, data []byte) ContentBlock {
	return ContentBlock{Image: &ImageBlock{Format: format, Data: data}}
}

// NewDocumentBlock returns a document content block.
func NewDocumentBlock(format, name string, data []byte) ContentBlock {
	return ContentBlock{Document: &DocumentBlock{Format: format, Name: name, Data: data}}
}

// NewJSONBlock returns a structured JSON payload block for tool results.
func NewJSONBlock(payload map[string]any) ContentBlock {
	return ContentBlock{JSON: payload}
}

// NewToolResultBlock wraps a successful tool payload for a tool-use id.
func NewToolResultBlock(toolUseID, toolName string, content ...ContentBlock) ContentBlock {
	return ContentBlock{ToolResult: &ToolResultBlock{
		ToolUseID: toolUseID,
		ToolName:  toolName,
		Status:    ToolResultSuccess,
		Content:   content,
	}}
}

// NewToolErrorBlock wraps a tool failure for a tool-use id.
// The error text is the only payload the model sees for the failed call.
func NewToolErrorBlock(toolUseID, toolName, message string) ContentBlock {
	return ContentBlock{ToolResult: &ToolResultBlock{
		ToolUseID: toolUseID,
		ToolName:  toolName,
		Status:    ToolResultError,
		Content:   []ContentBlock{NewTextBlock("Error: " + message)},
	}}
}

// IsText reports whether the block is a plain text block.
func (b ContentBlock) IsText() bool {
	return b.JSON == nil && b.Image == nil && b.Document == nil &&
		b.ToolUse == nil && b.ToolResult == nil
}

// ToolUses returns the tool-use blocks of the message in order.
func (m Message) ToolUses() []*ToolUseBlock {
	var uses []*ToolUseBlock
	for _, block := range m.Content {
		if block.ToolUse != nil {
			uses = append(uses, block.ToolUse)
		}
	}
	return uses
}

// ContainsDocument reports whether the message carries a document block,
// directly or nested inside a tool result. Used for model routing.
func (m Message) ContainsDocument() bool {
	for _, block := range m.Content {
		if block.Document != nil {
			return true
		}
		if block.ToolResult == nil {
			continue
		}
		for _, inner := range block.ToolResult.Content {
			if inner.Document != nil {
				return true
			}
		}
	}
	return false
}
