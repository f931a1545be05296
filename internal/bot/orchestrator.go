package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/llm"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/tools"
)

// DefaultMaxRounds bounds the tool loop so a non-converging conversation
// cannot burn tokens indefinitely.
const DefaultMaxRounds = 8

// CompletionClient produces one model turn for the accumulated conversation.
type CompletionClient interface {
	Complete(ctx context.Context, messages []llm.Message, forceToolUse bool) (llm.Message, error)
}

// ToolInvoker dispatches one validated tool call.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, input map[string]any) ([]llm.ContentBlock, error)
}

// ToolNotifier observes each tool invocation as it is dispatched. Used to
// surface live progress into the conversation thread.
type ToolNotifier func(name string, input map[string]any)

// RunOption customizes a single orchestration run.
type RunOption func(*runOptions)

type runOptions struct {
	notify ToolNotifier
}

// WithToolNotifier reports every dispatched tool call to fn.
func WithToolNotifier(fn ToolNotifier) RunOption {
	return func(o *runOptions) { o.notify = fn }
}

// Orchestrator drives the model through rounds of tool use until it
// produces a final textual answer. It is stateless across runs and safe for
// concurrent use; each run owns its message sequence exclusively.
type Orchestrator struct {
	client    CompletionClient
	tools     ToolInvoker
	maxRounds int
	logger    *slog.Logger
}

// NewOrchestrator wires an orchestrator. maxRounds <= 0 selects
// DefaultMaxRounds.
func NewOrchestrator(client CompletionClient, invoker ToolInvoker, maxRounds int, logger *slog.Logger) *Orchestrator {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Orchestrator{
		client:    client,
		tools:     invoker,
		maxRounds: maxRounds,
		logger:    logger,
	}
}

// Run reviews the thread and returns the model's final answer.
//
// Round 0 forces tool use so the model cannot skip its tools on the very
// first turn; later rounds leave the choice to the model. Tool calls within
// a round run sequentially in the order the model emitted them, since later
// calls may depend on earlier side effects (snapshot then search). Every
// tool-use block is answered by exactly one tool result in the next user
// message before the next round is sent.
//
// Individual tool failures, including unknown tool names, become
// error-status tool results and the run continues. Upstream model errors,
// an all-unknown tool round and an empty terminal response are fatal.
func (o *Orchestrator) Run(ctx context.Context, turns []ConversationTurn, opts ...RunOption) (string, error) {
	var options runOptions
	for _, opt := range opts {
		opt(&options)
	}

	messages := []llm.Message{buildTranscript(turns)}

	for round := 0; ; round++ {
		if round >= o.maxRounds {
			return "", fmt.Errorf("%w after %d rounds", ErrRoundLimit, o.maxRounds)
		}

		reply, err := o.client.Complete(ctx, messages, round == 0)
		if err != nil {
			return "", fmt.Errorf("completion round %d: %w", round, err)
		}

		uses := reply.ToolUses()
		if len(uses) == 0 {
			if len(reply.Content) == 0 {
				return "", ErrEmptyCompletion
			}
			o.logger.Info("conversation resolved", "rounds", round+1)
			return reply.Content[0].Text, nil
		}

		messages = append(messages, reply)

		results := make([]llm.ContentBlock, 0, len(uses))
		processed := 0
		for _, use := range uses {
			if options.notify != nil {
				options.notify(use.Name, use.Input)
			}
			results = append(results, o.dispatch(ctx, use, &processed))
		}
		if processed == 0 {
			return "", ErrNoToolProcessed
		}

		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: results})
	}
}

// dispatch runs one tool call and wraps its outcome as a tool result.
// processed is incremented only when a known tool actually ran, successfully
// or not; a round where no known tool ran is fatal to the run.
func (o *Orchestrator) dispatch(ctx context.Context, use *llm.ToolUseBlock, processed *int) llm.ContentBlock {
	o.logger.Info("dispatching tool", "tool", use.Name, "tool_use_id", use.ID)

	blocks, err := o.tools.Invoke(ctx, use.Name, use.Input)
	if err != nil {
		if !errors.Is(err, tools.ErrUnknownTool) {
			*processed++
		}
		o.logger.Warn("tool call failed", "tool", use.Name, "tool_use_id", use.ID, "error", err)
		return llm.NewToolErrorBlock(use.ID, use.Name, err.Error())
	}

	*processed++
	return llm.NewToolResultBlock(use.ID, use.Name, blocks...)
}
