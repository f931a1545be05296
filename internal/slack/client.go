// Package slack implements the conversation source and reply sink over the
// Slack Web API.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/bot"
)

const (
	// DefaultAPIBase is the Slack Web API root.
	DefaultAPIBase = "https://slack.com"

	// threadFetchLimit caps one conversations.replies page. Threads longer
	// than this are not expected in practice.
	threadFetchLimit = 1000

	attachmentMaxBytes = 20 << 20
)

// Client is a lightweight Slack Web API client implementing
// bot.ConversationSource and bot.ReplySink.
type Client struct {
	token      string
	apiBase    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Slack client. apiBase overrides the API root, for tests;
// empty selects DefaultAPIBase.
func New(token, apiBase string, logger *slog.Logger) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("slack bot token is required")
	}
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		token:      token,
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

type apiFile struct {
	Title              string `json:"title"`
	Mimetype           string `json:"mimetype"`
	Filetype           string `json:"filetype"`
	URLPrivateDownload string `json:"url_private_download"`
}

type apiMessage struct {
	User       string `json:"user"`
	BotID      string `json:"bot_id"`
	BotProfile *struct {
		Name string `json:"name"`
	} `json:"bot_profile"`
	Text  string    `json:"text"`
	Files []apiFile `json:"files"`
}

type repliesResponse struct {
	OK       bool         `json:"ok"`
	Error    string       `json:"error"`
	Messages []apiMessage `json:"messages"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// FetchThread loads the whole thread and downloads its attachments.
// Bot-authored turns keep the bot's profile name as the sender so the model
// can tell its own previous replies apart from user messages.
func (c *Client) FetchThread(ctx context.Context, channelID, threadTimestamp string) ([]bot.ConversationTurn, error) {
	query := url.Values{
		"channel": {channelID},
		"ts":      {threadTimestamp},
		"limit":   {strconv.Itoa(threadFetchLimit)},
	}
	endpoint := fmt.Sprintf("%s/api/conversations.replies?%s", c.apiBase, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building conversations.replies request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	var parsed repliesResponse
	if err := c.do(req, &parsed); err != nil {
		return nil, fmt.Errorf("fetching thread %s/%s: %w", channelID, threadTimestamp, err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("conversations.replies failed: %s", parsed.Error)
	}

	turns := make([]bot.ConversationTurn, 0, len(parsed.Messages))
	for _, msg := range parsed.Messages {
		sender := msg.User
		if msg.BotID != "" && msg.BotProfile != nil {
			sender = msg.BotProfile.Name
		}

		turn := bot.ConversationTurn{Sender: sender, Text: msg.Text}
		for _, file := range msg.Files {
			data, err := c.downloadAttachment(ctx, file.URLPrivateDownload)
			if err != nil {
				// A lost attachment should not sink the whole thread.
				c.logger.Warn("failed to download attachment", "title", file.Title, "error", err)
				continue
			}
			turn.Attachments = append(turn.Attachments, bot.Attachment{
				Title:    file.Title,
				MimeType: file.Mimetype,
				FileType: file.Filetype,
				Data:     data,
			})
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Deliver posts text into the thread via chat.postMessage.
func (c *Client) Deliver(ctx context.Context, channelID, threadTimestamp, text string) error {
	payload, err := json.Marshal(map[string]string{
		"channel":   channelID,
		"text":      text,
		"thread_ts": threadTimestamp,
	})
	if err != nil {
		return fmt.Errorf("encoding chat.postMessage payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/api/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building chat.postMessage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	var parsed postMessageResponse
	if err := c.do(req, &parsed); err != nil {
		return fmt.Errorf("posting message to %s/%s: %w", channelID, threadTimestamp, err)
	}
	if !parsed.OK {
		return fmt.Errorf("chat.postMessage failed: %s", parsed.Error)
	}
	return nil
}

// downloadAttachment fetches a private file with the bot token.
func (c *Client) downloadAttachment(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", fileURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, attachmentMaxBytes))
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding slack response: %w", err)
	}
	return nil
}
