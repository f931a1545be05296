package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/llm"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/log"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/tools"
)

// scriptedClient replays canned replies and records how each round was
// requested.
type scriptedClient struct {
	replies    []llm.Message
	err        error
	forceFlags []bool
	snapshots  [][]llm.Message
}

func (s *scriptedClient) Complete(_ context.Context, messages []llm.Message, forceToolUse bool) (llm.Message, error) {
	s.forceFlags = append(s.forceFlags, forceToolUse)
	s.snapshots = append(s.snapshots, append([]llm.Message(nil), messages...))
	if s.err != nil {
		return llm.Message{}, s.err
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

// fakeInvoker maps tool names to canned outcomes.
type fakeInvoker struct {
	outcomes map[string]func(input map[string]any) ([]llm.ContentBlock, error)
	calls    []string
}

func (f *fakeInvoker) Invoke(_ context.Context, name string, input map[string]any) ([]llm.ContentBlock, error) {
	f.calls = append(f.calls, name)
	outcome, ok := f.outcomes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tools.ErrUnknownTool, name)
	}
	return outcome(input)
}

func textReply(text string) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, Content: []llm.ContentBlock{llm.NewTextBlock(text)}}
}

func toolUseReply(uses ...*llm.ToolUseBlock) llm.Message {
	msg := llm.Message{Role: llm.RoleAssistant}
	for _, use := range uses {
		msg.Content = append(msg.Content, llm.ContentBlock{ToolUse: use})
	}
	return msg
}

func turns() []ConversationTurn {
	return []ConversationTurn{{Sender: "U12345678", Text: "What's our VPN policy?"}}
}

func TestRunForcesToolUseOnFirstRoundOnly(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{
		toolUseReply(&llm.ToolUseBlock{ID: "t1", Name: "search_knowledge_base", Input: map[string]any{"question": "VPN policy"}}),
		textReply("VPN access requires MFA."),
	}}
	invoker := &fakeInvoker{outcomes: map[string]func(map[string]any) ([]llm.ContentBlock, error){
		"search_knowledge_base": func(map[string]any) ([]llm.ContentBlock, error) {
			return []llm.ContentBlock{llm.NewJSONBlock(map[string]any{"records": []any{}})}, nil
		},
	}}

	orch := NewOrchestrator(client, invoker, 0, log.NewNop())
	answer, err := orch.Run(context.Background(), turns())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if answer != "VPN access requires MFA." {
		t.Errorf("answer = %q", answer)
	}
	want := []bool{true, false}
	if len(client.forceFlags) != 2 || client.forceFlags[0] != want[0] || client.forceFlags[1] != want[1] {
		t.Errorf("force flags = %v, want %v", client.forceFlags, want)
	}
}

func TestRunPairsEveryToolUseWithOneResult(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{
		toolUseReply(
			&llm.ToolUseBlock{ID: "t1", Name: "search_web", Input: map[string]any{"query": "a"}},
			&llm.ToolUseBlock{ID: "t2", Name: "broken_tool", Input: map[string]any{}},
			&llm.ToolUseBlock{ID: "t3", Name: "no_such_tool", Input: map[string]any{}},
		),
		textReply("done"),
	}}
	invoker := &fakeInvoker{outcomes: map[string]func(map[string]any) ([]llm.ContentBlock, error){
		"search_web": func(map[string]any) ([]llm.ContentBlock, error) {
			return []llm.ContentBlock{llm.NewTextBlock("hits")}, nil
		},
		"broken_tool": func(map[string]any) ([]llm.ContentBlock, error) {
			return nil, errors.New("upstream down")
		},
	}}

	orch := NewOrchestrator(client, invoker, 0, log.NewNop())
	if _, err := orch.Run(context.Background(), turns()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The second completion call sees transcript, assistant tool uses and
	// one user message holding the three results.
	if len(client.snapshots) != 2 {
		t.Fatalf("completion calls = %d, want 2", len(client.snapshots))
	}
	final := client.snapshots[1]
	if len(final) != 3 {
		t.Fatalf("message sequence length = %d, want 3", len(final))
	}
	resultMsg := final[2]
	if resultMsg.Role != llm.RoleUser {
		t.Errorf("results role = %q, want user", resultMsg.Role)
	}
	if len(resultMsg.Content) != 3 {
		t.Fatalf("result blocks = %d, want 3", len(resultMsg.Content))
	}

	wantByID := map[string]llm.ToolResultStatus{
		"t1": llm.ToolResultSuccess,
		"t2": llm.ToolResultError,
		"t3": llm.ToolResultError,
	}
	for i, block := range resultMsg.Content {
		result := block.ToolResult
		if result == nil {
			t.Fatalf("block %d is not a tool result", i)
		}
		wantStatus, ok := wantByID[result.ToolUseID]
		if !ok {
			t.Fatalf("unexpected tool use id %q", result.ToolUseID)
		}
		if result.Status != wantStatus {
			t.Errorf("result %s status = %q, want %q", result.ToolUseID, result.Status, wantStatus)
		}
		if len(result.Content) == 0 {
			t.Errorf("result %s has empty content", result.ToolUseID)
		}
		delete(wantByID, result.ToolUseID)
	}
	if len(wantByID) != 0 {
		t.Errorf("unanswered tool uses: %v", wantByID)
	}

	// Dispatch order follows the order the model emitted the calls.
	wantCalls := []string{"search_web", "broken_tool", "no_such_tool"}
	for i, name := range wantCalls {
		if invoker.calls[i] != name {
			t.Errorf("call %d = %q, want %q", i, invoker.calls[i], name)
		}
	}
}

func TestRunTerminatesOnTextAnswerVerbatim(t *testing.T) {
	const answer = "  exact answer, untouched \n"
	client := &scriptedClient{replies: []llm.Message{textReply(answer)}}

	orch := NewOrchestrator(client, &fakeInvoker{}, 0, log.NewNop())
	got, err := orch.Run(context.Background(), turns())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != answer {
		t.Errorf("answer = %q, want verbatim %q", got, answer)
	}
	if len(client.forceFlags) != 1 {
		t.Errorf("completion calls = %d, want 1", len(client.forceFlags))
	}
}

func TestRunFailsWhenNoToolCouldBeProcessed(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{
		toolUseReply(&llm.ToolUseBlock{ID: "t1", Name: "no_such_tool", Input: map[string]any{}}),
	}}

	orch := NewOrchestrator(client, &fakeInvoker{}, 0, log.NewNop())
	_, err := orch.Run(context.Background(), turns())
	if !errors.Is(err, ErrNoToolProcessed) {
		t.Fatalf("Run error = %v, want ErrNoToolProcessed", err)
	}
}

func TestRunFailsOnEmptyCompletion(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{{Role: llm.RoleAssistant}}}

	orch := NewOrchestrator(client, &fakeInvoker{}, 0, log.NewNop())
	_, err := orch.Run(context.Background(), turns())
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("Run error = %v, want ErrEmptyCompletion", err)
	}
}

func TestRunFailsOnUpstreamModelError(t *testing.T) {
	wantErr := errors.New("quota exhausted")
	client := &scriptedClient{err: wantErr}

	orch := NewOrchestrator(client, &fakeInvoker{}, 0, log.NewNop())
	_, err := orch.Run(context.Background(), turns())
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run error = %v, want wrapped %v", err, wantErr)
	}
}

func TestRunStopsAtRoundLimit(t *testing.T) {
	// The model asks for the same tool forever.
	loop := toolUseReply(&llm.ToolUseBlock{ID: "t1", Name: "search_web", Input: map[string]any{"query": "x"}})
	client := &scriptedClient{replies: []llm.Message{loop, loop, loop}}
	invoker := &fakeInvoker{outcomes: map[string]func(map[string]any) ([]llm.ContentBlock, error){
		"search_web": func(map[string]any) ([]llm.ContentBlock, error) {
			return []llm.ContentBlock{llm.NewTextBlock("hits")}, nil
		},
	}}

	orch := NewOrchestrator(client, invoker, 3, log.NewNop())
	_, err := orch.Run(context.Background(), turns())
	if !errors.Is(err, ErrRoundLimit) {
		t.Fatalf("Run error = %v, want ErrRoundLimit", err)
	}
	if len(client.forceFlags) != 3 {
		t.Errorf("completion calls = %d, want 3", len(client.forceFlags))
	}
}

func TestRunNotifiesEachToolUse(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{
		toolUseReply(
			&llm.ToolUseBlock{ID: "t1", Name: "search_web", Input: map[string]any{"query": "a"}},
			&llm.ToolUseBlock{ID: "t2", Name: "search_web", Input: map[string]any{"query": "b"}},
		),
		textReply("done"),
	}}
	invoker := &fakeInvoker{outcomes: map[string]func(map[string]any) ([]llm.ContentBlock, error){
		"search_web": func(map[string]any) ([]llm.ContentBlock, error) {
			return []llm.ContentBlock{llm.NewTextBlock("hits")}, nil
		},
	}}

	var notified []string
	orch := NewOrchestrator(client, invoker, 0, log.NewNop())
	_, err := orch.Run(context.Background(), turns(), WithToolNotifier(func(name string, _ map[string]any) {
		notified = append(notified, name)
	}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notified) != 2 {
		t.Fatalf("notified %d times, want 2", len(notified))
	}
}

func TestNewOrchestratorDefaultsRoundCeiling(t *testing.T) {
	for _, maxRounds := range []int{0, -1} {
		o := NewOrchestrator(&scriptedClient{}, &fakeInvoker{}, maxRounds, log.NewNop())
		if o.maxRounds != DefaultMaxRounds {
			t.Errorf("NewOrchestrator(maxRounds=%d).maxRounds = %d, want %d", maxRounds, o.maxRounds, DefaultMaxRounds)
		}
	}
}
