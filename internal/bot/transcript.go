package bot

import (
	"fmt"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/llm"
)

const (
	transcriptOpening = "Here is the conversation record between User & Support Bot:\n---\n"
	transcriptClosing = "\n---\nNow reply to the user."
)

// Platform filetype labels mapped onto model media formats. Anything not
// listed degrades to a text note naming the attachment.
var (
	imageFormatByFiletype = map[string]string{
		"jpg":  "jpeg",
		"png":  "png",
		"gif":  "gif",
		"webm": "webp",
	}
	documentFormatByFiletype = map[string]string{
		"pdf":      "pdf",
		"csv":      "csv",
		"doc":      "doc",
		"docx":     "docx",
		"xls":      "xls",
		"xlsx":     "xlsx",
		"html":     "html",
		"text":     "txt",
		"markdown": "md",
	}
)

// buildTranscript folds the whole thread into the single user message that
// opens an orchestration run. Attachments precede their turn's text; the
// framing text tells the model it is reviewing a transcript and must reply
// now.
func buildTranscript(turns []ConversationTurn) llm.Message {
	blocks := []llm.ContentBlock{llm.NewTextBlock(transcriptOpening)}

	for _, turn := range turns {
		for _, att := range turn.Attachments {
			blocks = append(blocks, classifyAttachment(turn.Sender, att))
		}
		blocks = append(blocks, llm.NewTextBlock(fmt.Sprintf("%s: %s", turn.Sender, turn.Text)))
	}

	blocks = append(blocks, llm.NewTextBlock(transcriptClosing))
	return llm.Message{Role: llm.RoleUser, Content: blocks}
}

func classifyAttachment(sender string, att Attachment) llm.ContentBlock {
	if format, ok := imageFormatByFiletype[att.FileType]; ok {
		return llm.NewImageBlock(format, att.Data)
	}
	if format, ok := documentFormatByFiletype[att.FileType]; ok {
		return llm.NewDocumentBlock(format, fmt.Sprintf("%s from %s", format, sender), att.Data)
	}
	return llm.NewTextBlock(fmt.Sprintf("Attachment from %s: %s `%s`", sender, att.Title, att.FileType))
}
