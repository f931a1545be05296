package bot

// ConversationTurn is one message of the thread under review, immutable
// once constructed from platform history.
type ConversationTurn struct {
	Sender      string
	Text        string
	Attachments []Attachment
}

// Attachment is a file shared in the thread. FileType is the platform's
// filetype label; classification into image, document or a text fallback
// happens when the transcript is built.
type Attachment struct {
	Title    string
	MimeType string
	FileType string
	Data     []byte
}

// Event is an inbound platform notification about a thread message.
type Event struct {
	ChannelID       string
	Timestamp       string
	ThreadTimestamp string
	BotID           string
}

// ReplyTimestamp returns the thread the reply should land in: the thread
// root when the message is already part of a thread, otherwise the message
// itself becomes the root.
func (e Event) ReplyTimestamp() string {
	if e.ThreadTimestamp != "" {
		return e.ThreadTimestamp
	}
	return e.Timestamp
}
