package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/bot"
)

// retryHeader is set by Slack on redelivery attempts. Slack retries with
// exponential backoff whenever the first delivery is not acknowledged in
// time; re-running the conversation for a retry would double-post answers.
const retryHeader = "X-Slack-Retry-Num"

// EventProcessor consumes one gated inbound event.
type EventProcessor interface {
	HandleEvent(ctx context.Context, event bot.Event)
}

// EventsHandler is the Slack Events API intake. It acknowledges every
// callback immediately and hands real message events to the processor on a
// separate goroutine, since Slack expects a 200 within 3 seconds and an
// orchestration run can take minutes.
type EventsHandler struct {
	processor EventProcessor
	logger    *slog.Logger
	inflight  sync.WaitGroup
}

// NewEventsHandler creates the event intake around a processor.
func NewEventsHandler(processor EventProcessor, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{processor: processor, logger: logger}
}

// RegisterRoutes registers the events route on the given mux.
func (h *EventsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /slack/events", h.handleEvent)
}

// Wait blocks until all in-flight conversations have finished.
func (h *EventsHandler) Wait() {
	h.inflight.Wait()
}

type eventCallback struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Event     struct {
		Type            string `json:"type"`
		Channel         string `json:"channel"`
		Timestamp       string `json:"ts"`
		ThreadTimestamp string `json:"thread_ts"`
		BotID           string `json:"bot_id"`
	} `json:"event"`
}

func (h *EventsHandler) handleEvent(w http.ResponseWriter, r *http.Request) {
	// A redelivery means the original is already being processed.
	if r.Header.Get(retryHeader) != "" {
		h.logger.Debug("acknowledging platform retry", "retry_num", r.Header.Get(retryHeader))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}

	var callback eventCallback
	if err := json.NewDecoder(r.Body).Decode(&callback); err != nil {
		http.Error(w, "invalid event payload", http.StatusBadRequest)
		return
	}

	switch callback.Type {
	case "url_verification":
		writeJSON(w, http.StatusOK, map[string]string{"challenge": callback.Challenge})
		return

	case "event_callback":
		if callback.Event.Type == "message" {
			h.dispatch(bot.Event{
				ChannelID:       callback.Event.Channel,
				Timestamp:       callback.Event.Timestamp,
				ThreadTimestamp: callback.Event.ThreadTimestamp,
				BotID:           callback.Event.BotID,
			})
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return

	default:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// dispatch processes the event after the HTTP response is sent. The run is
// detached from the request context: the ack has already gone out, so the
// conversation must not die with the connection.
func (h *EventsHandler) dispatch(event bot.Event) {
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		h.processor.HandleEvent(context.Background(), event)
	}()
}
