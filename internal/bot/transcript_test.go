package bot

import (
	"strings"
	"testing"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/llm"
)

func TestBuildTranscriptFramesTheThread(t *testing.T) {
	msg := buildTranscript([]ConversationTurn{
		{Sender: "U11111111", Text: "The VPN keeps dropping."},
		{Sender: "U99999999", Text: "Which office are you in?"},
	})

	if msg.Role != llm.RoleUser {
		t.Errorf("role = %q, want user", msg.Role)
	}
	if len(msg.Content) != 4 {
		t.Fatalf("blocks = %d, want 4", len(msg.Content))
	}
	if !strings.HasPrefix(msg.Content[0].Text, "Here is the conversation record") {
		t.Errorf("opening framing missing: %q", msg.Content[0].Text)
	}
	if got := msg.Content[1].Text; got != "U11111111: The VPN keeps dropping." {
		t.Errorf("turn text = %q", got)
	}
	if got := msg.Content[len(msg.Content)-1].Text; !strings.Contains(got, "Now reply to the user.") {
		t.Errorf("closing framing missing: %q", got)
	}
}

func TestBuildTranscriptClassifiesAttachments(t *testing.T) {
	tests := []struct {
		name  string
		att   Attachment
		check func(t *testing.T, block llm.ContentBlock)
	}{
		{
			name: "jpg becomes a jpeg image",
			att:  Attachment{Title: "screenshot", FileType: "jpg", Data: []byte{0xFF, 0xD8}},
			check: func(t *testing.T, block llm.ContentBlock) {
				if block.Image == nil || block.Image.Format != "jpeg" {
					t.Fatalf("block = %+v, want jpeg image", block)
				}
			},
		},
		{
			name: "webm maps to webp",
			att:  Attachment{Title: "clip", FileType: "webm", Data: []byte{1}},
			check: func(t *testing.T, block llm.ContentBlock) {
				if block.Image == nil || block.Image.Format != "webp" {
					t.Fatalf("block = %+v, want webp image", block)
				}
			},
		},
		{
			name: "markdown becomes an md document named after the sender",
			att:  Attachment{Title: "notes", FileType: "markdown", Data: []byte("# hi")},
			check: func(t *testing.T, block llm.ContentBlock) {
				if block.Document == nil || block.Document.Format != "md" {
					t.Fatalf("block = %+v, want md document", block)
				}
				if block.Document.Name != "md from U11111111" {
					t.Errorf("document name = %q", block.Document.Name)
				}
			},
		},
		{
			name: "text filetype becomes a txt document",
			att:  Attachment{Title: "log", FileType: "text", Data: []byte("boot ok")},
			check: func(t *testing.T, block llm.ContentBlock) {
				if block.Document == nil || block.Document.Format != "txt" {
					t.Fatalf("block = %+v, want txt document", block)
				}
			},
		},
		{
			name: "unsupported filetype degrades to a text note",
			att:  Attachment{Title: "firmware.bin", FileType: "binary", Data: []byte{0}},
			check: func(t *testing.T, block llm.ContentBlock) {
				if !block.IsText() {
					t.Fatalf("block = %+v, want text", block)
				}
				if want := "Attachment from U11111111: firmware.bin `binary`"; block.Text != want {
					t.Errorf("text = %q, want %q", block.Text, want)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := buildTranscript([]ConversationTurn{{
				Sender:      "U11111111",
				Text:        "see attached",
				Attachments: []Attachment{tt.att},
			}})
			// framing, attachment, turn text, framing
			if len(msg.Content) != 4 {
				t.Fatalf("blocks = %d, want 4", len(msg.Content))
			}
			tt.check(t, msg.Content[1])
		})
	}
}

func TestBuildTranscriptPutsAttachmentsBeforeTurnText(t *testing.T) {
	msg := buildTranscript([]ConversationTurn{{
		Sender: "U11111111",
		Text:   "two files attached",
		Attachments: []Attachment{
			{Title: "a.png", FileType: "png", Data: []byte{1}},
			{Title: "b.pdf", FileType: "pdf", Data: []byte{2}},
		},
	}})

	if msg.Content[1].Image == nil {
		t.Errorf("block 1 = %+v, want image", msg.Content[1])
	}
	if msg.Content[2].Document == nil {
		t.Errorf("block 2 = %+v, want document", msg.Content[2])
	}
	if got := msg.Content[3].Text; got != "U11111111: two files attached" {
		t.Errorf("block 3 = %q, want turn text", got)
	}
}
