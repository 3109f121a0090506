package ai

import (
	"fmt"
	"strings"

	"livechat-backend/internal/model"
)

// TranscriptContextLimit bounds how much of the conversation rides along
// on each completion request.
const TranscriptContextLimit = 30

const defaultSystemPrompt = "You are a helpful shop assistant answering customer questions in a live chat. " +
	"Answer briefly and only from the store context provided. " +
	"If you do not know, say a member of staff will follow up."

// BuildMessages assembles the completion payload: the system prompt with
// the visitor's store context folded in, then the tail of the transcript.
func BuildMessages(systemPrompt string, visitor model.VisitorItem, transcript []model.MessageItem) []ChatMessage {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)

	if ctx := visitorContext(visitor); ctx != "" {
		sb.WriteString("\n\nStore context:\n")
		sb.WriteString(ctx)
	}

	messages := []ChatMessage{{Role: "system", Content: sb.String()}}

	if len(transcript) > TranscriptContextLimit {
		transcript = transcript[len(transcript)-TranscriptContextLimit:]
	}

	for _, message := range transcript {
		content := message.ContentText
		if content == "" && message.Card != nil {
			content = "Shared product: " + message.Card.Title
		}
		if content == "" {
			continue
		}

		switch message.SenderType {
		case model.SenderVisitor:
			messages = append(messages, ChatMessage{Role: "user", Content: content})
		case model.SenderAgent, model.SenderAI:
			messages = append(messages, ChatMessage{Role: "assistant", Content: content})
		}
	}

	return messages
}

func visitorContext(visitor model.VisitorItem) string {
	var lines []string

	if visitor.Name != "" {
		lines = append(lines, "Customer name: "+visitor.Name)
	}
	if visitor.CurrentTitle != "" || visitor.CurrentURL != "" {
		lines = append(lines, fmt.Sprintf("Currently viewing: %s (%s)", visitor.CurrentTitle, visitor.CurrentURL))
	}

	if len(visitor.PageHistory) > 0 {
		var pages []string
		for _, visit := range visitor.PageHistory {
			title := visit.Title
			if title == "" {
				title = visit.URL
			}
			pages = append(pages, title)
		}
		lines = append(lines, "Recently viewed pages: "+strings.Join(pages, "; "))
	}

	if len(visitor.Cart) > 0 {
		var items []string
		for _, item := range visitor.Cart {
			items = append(items, fmt.Sprintf("%s x%d (%s)", item.Title, item.Qty, item.Price))
		}
		lines = append(lines, "Cart contents: "+strings.Join(items, "; "))
	}

	return strings.Join(lines, "\n")
}
