package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRunTimeout bounds one orchestration run end to end, including
// every model call, tool call and pool wait inside it.
const DefaultRunTimeout = 5 * time.Minute

var tracer = otel.Tracer("github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/bot")

// ConversationSource fetches the full thread an event belongs to.
type ConversationSource interface {
	FetchThread(ctx context.Context, channelID, threadTimestamp string) ([]ConversationTurn, error)
}

// ReplySink delivers a reply into a thread.
type ReplySink interface {
	Deliver(ctx context.Context, channelID, threadTimestamp, text string) error
}

// Handler connects inbound events to the orchestrator: it gates bot-authored
// events, loads the thread, runs the loop under a deadline and delivers the
// answer or a single diagnostic failure message.
type Handler struct {
	source     ConversationSource
	sink       ReplySink
	orch       *Orchestrator
	runTimeout time.Duration
	logger     *slog.Logger
}

// NewHandler wires a handler. runTimeout <= 0 selects DefaultRunTimeout.
func NewHandler(source ConversationSource, sink ReplySink, orch *Orchestrator, runTimeout time.Duration, logger *slog.Logger) *Handler {
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}
	return &Handler{
		source:     source,
		sink:       sink,
		orch:       orch,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// HandleEvent processes one inbound message event.
//
// Events authored by any bot are dropped before the orchestrator is ever
// invoked, so two bots cannot talk each other into an infinite thread.
// Failures are reported into the thread rather than returned: from the
// platform's point of view the event is always consumed.
func (h *Handler) HandleEvent(ctx context.Context, event Event) {
	if event.BotID != "" {
		h.logger.Debug("dropping bot-authored event", "channel", event.ChannelID, "bot_id", event.BotID)
		return
	}

	replyTS := event.ReplyTimestamp()
	logger := h.logger.With("channel", event.ChannelID, "thread_ts", replyTS)

	runCtx, cancel := context.WithTimeout(ctx, h.runTimeout)
	defer cancel()

	runCtx, span := tracer.Start(runCtx, "bot.handle_event", trace.WithAttributes(
		attribute.String("slack.channel", event.ChannelID),
		attribute.String("slack.thread_ts", replyTS),
	))
	defer span.End()

	turns, err := h.source.FetchThread(runCtx, event.ChannelID, replyTS)
	if err != nil {
		logger.Error("failed to load thread", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "loading thread")
		h.reportFailure(ctx, event.ChannelID, replyTS, err)
		return
	}
	span.SetAttributes(attribute.Int("conversation.turns", len(turns)))

	notify := func(name string, input map[string]any) {
		text := fmt.Sprintf("Tool `%s` used with input `%v`", name, input)
		if err := h.sink.Deliver(runCtx, event.ChannelID, replyTS, text); err != nil {
			logger.Warn("failed to post tool progress", "tool", name, "error", err)
		}
	}

	answer, err := h.orch.Run(runCtx, turns, WithToolNotifier(notify))
	if err != nil {
		logger.Error("orchestration failed", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "orchestration")
		h.reportFailure(ctx, event.ChannelID, replyTS, err)
		return
	}
	span.SetStatus(codes.Ok, "")

	if err := h.sink.Deliver(runCtx, event.ChannelID, replyTS, answer); err != nil {
		logger.Error("failed to deliver answer", "error", err)
	}
}

// reportFailure posts one human-readable diagnostic into the thread.
// It uses the parent context so a reply still goes out when the run
// deadline itself was the failure.
func (h *Handler) reportFailure(ctx context.Context, channelID, threadTS string, cause error) {
	text := fmt.Sprintf("An error occurred while processing the conversation:\n```\n%v\n```", cause)
	if err := h.sink.Deliver(ctx, channelID, threadTS, text); err != nil {
		h.logger.Error("failed to deliver failure message", "channel", channelID, "error", err)
	}
}
