package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// imageMIMETypes maps normalized image formats to MIME types accepted by the
// completion model as inline data.
var imageMIMETypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// documentMIMETypes maps normalized document formats to MIME types.
var documentMIMETypes = map[string]string{
	"pdf":  "application/pdf",
	"csv":  "text/csv",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"html": "text/html",
	"txt":  "text/plain",
	"md":   "text/markdown",
}

// ClientConfig holds the completion client's tunables.
type ClientConfig struct {
	// ChatModel answers conversations without document content.
	ChatModel string

	// DocumentChatModel answers conversations carrying document blocks,
	// directly or nested in tool results. Routing is re-evaluated per call.
	DocumentChatModel string

	// Temperature is the fixed sampling temperature for every call.
	Temperature float32
}

// Client wraps single request/response completion calls.
//
// The tool catalog and system instruction are fixed at construction and sent
// unchanged with every call. Client is safe for concurrent use.
type Client struct {
	models models
	cfg    ClientConfig
	specs  []ToolSpec
	logger *slog.Logger
}

// models is the slice of the genai SDK the client consumes.
// Satisfied by *genai.Models; substituted in tests.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewClient creates a completion client over an initialized genai client.
// specs is the static tool catalog for the lifetime of the process.
func NewClient(gc *genai.Client, cfg ClientConfig, specs []ToolSpec, logger *slog.Logger) (*Client, error) {
	if gc == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	return newClient(gc.Models, cfg, specs, logger)
}

func newClient(m models, cfg ClientConfig, specs []ToolSpec, logger *slog.Logger) (*Client, error) {
	if m == nil {
		return nil, fmt.Errorf("models API is required")
	}
	if cfg.ChatModel == "" || cfg.DocumentChatModel == "" {
		return nil, fmt.Errorf("chat model names are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{models: m, cfg: cfg, specs: specs, logger: logger}, nil
}

// Complete sends the accumulated conversation and returns the model's reply.
//
// When forceToolUse is set the model must either call a tool or answer
// through one (tool choice "any"); otherwise tool use is optional ("auto").
// A provider response without a usable output message yields a canned
// apologetic text message, never an error: upstream transport failures are
// the only error path out of this method and they are fatal to the run.
func (c *Client) Complete(ctx context.Context, messages []Message, forceToolUse bool) (Message, error) {
	contents := toContents(messages)

	mode := genai.FunctionCallingConfigModeAuto
	if forceToolUse {
		mode = genai.FunctionCallingConfigModeAny
	}

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(c.cfg.Temperature),
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
		},
	}
	if len(c.specs) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: toFunctionDeclarations(c.specs)}}
	}

	model := c.selectModel(messages)
	c.logger.Debug("completion call", "model", model, "messages", len(messages), "force_tool_use", forceToolUse)

	resp, err := c.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return Message{}, fmt.Errorf("completion call failed: %w", err)
	}

	return parseResponse(resp), nil
}

// selectModel routes to the document-capable model variant when any message
// carries a document block. Pure function of the conversation content.
func (c *Client) selectModel(messages []Message) string {
	for _, m := range messages {
		if m.ContainsDocument() {
			return c.cfg.DocumentChatModel
		}
	}
	return c.cfg.ChatModel
}

// toContents converts the conversation into provider contents.
func toContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: toParts(m.Content),
		})
	}
	return contents
}

// toParts flattens content blocks into provider parts.
//
// Binary tool-result payloads cannot ride inside a function response (its
// body is JSON); they are emitted as sibling inline-data parts and the
// function response references them by a placeholder entry.
func toParts(blocks []ContentBlock) []*genai.Part {
	var parts []*genai.Part
	for _, block := range blocks {
		switch {
		case block.Image != nil:
			parts = append(parts, inlinePart(imageMIMETypes[block.Image.Format], "image/jpeg", block.Image.Data))

		case block.Document != nil:
			parts = append(parts, inlinePart(documentMIMETypes[block.Document.Format], "text/plain", block.Document.Data))

		case block.ToolUse != nil:
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				ID:   block.ToolUse.ID,
				Name: block.ToolUse.Name,
				Args: block.ToolUse.Input,
			}})

		case block.ToolResult != nil:
			response, binary := toolResultResponse(block.ToolResult)
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       block.ToolResult.ToolUseID,
				Name:     block.ToolResult.ToolName,
				Response: response,
			}})
			parts = append(parts, binary...)

		case block.JSON != nil:
			// JSON blocks only occur inside tool results; reaching here
			// means a malformed message, degrade to its text form.
			parts = append(parts, genai.NewPartFromText(fmt.Sprintf("%v", block.JSON)))

		default:
			parts = append(parts, genai.NewPartFromText(block.Text))
		}
	}
	return parts
}

// toolResultResponse builds the JSON body of a function response plus the
// inline-data parts for any binary payloads it references.
func toolResultResponse(result *ToolResultBlock) (map[string]any, []*genai.Part) {
	var items []any
	var binary []*genai.Part

	for _, block := range result.Content {
		switch {
		case block.JSON != nil:
			items = append(items, map[string]any{"json": block.JSON})
		case block.Image != nil:
			items = append(items, map[string]any{"image": map[string]any{
				"format": block.Image.Format,
				"note":   "image bytes attached inline",
			}})
			binary = append(binary, inlinePart(imageMIMETypes[block.Image.Format], "image/jpeg", block.Image.Data))
		case block.Document != nil:
			items = append(items, map[string]any{"document": map[string]any{
				"format": block.Document.Format,
				"name":   block.Document.Name,
				"note":   "document bytes attached inline",
			}})
			binary = append(binary, inlinePart(documentMIMETypes[block.Document.Format], "text/plain", block.Document.Data))
		default:
			items = append(items, map[string]any{"text": block.Text})
		}
	}

	return map[string]any{
		"status":  string(result.Status),
		"content": items,
	}, binary
}

// inlinePart wraps bytes as inline data, falling back to a safe MIME type
// when the format mapping has no entry.
func inlinePart(mimeType, fallback string, data []byte) *genai.Part {
	if mimeType == "" {
		mimeType = fallback
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}
}

// parseResponse converts a provider response into an assistant message.
// A response without a usable output message becomes the canned apology.
func parseResponse(resp *genai.GenerateContentResponse) Message {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Message{Role: RoleAssistant, Content: []ContentBlock{NewTextBlock(apologyText)}}
	}

	msg := Message{Role: RoleAssistant}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		switch {
		case part.FunctionCall != nil:
			id := part.FunctionCall.ID
			if id == "" {
				// The provider may omit call ids; synthesize one so
				// tool-use/tool-result pairing stays well-defined.
				id = uuid.NewString()
			}
			msg.Content = append(msg.Content, ContentBlock{ToolUse: &ToolUseBlock{
				ID:    id,
				Name:  part.FunctionCall.Name,
				Input: part.FunctionCall.Args,
			}})
		case part.Text != "":
			msg.Content = append(msg.Content, NewTextBlock(part.Text))
		}
	}
	return msg
}
