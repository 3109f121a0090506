package syncclient

import "livechat-backend/internal/dto"

// Transcript accumulates fetched messages. The next fetch watermark is
// max(ts)-1, which deliberately re-fetches rows sharing the newest second;
// the message-id set makes the over-fetch harmless.
type Transcript struct {
	seen      map[string]bool
	messages  []dto.Message
	watermark int64
}

func NewTranscript() *Transcript {
	return &Transcript{seen: make(map[string]bool)}
}

// Apply merges a fetch result and returns only the rows not rendered yet,
// in arrival order.
func (t *Transcript) Apply(messages []dto.Message) []dto.Message {
	fresh := make([]dto.Message, 0, len(messages))
	maxTS := int64(0)

	for _, message := range messages {
		if message.TS > maxTS {
			maxTS = message.TS
		}
		if t.seen[message.MessageID] {
			continue
		}
		t.seen[message.MessageID] = true
		t.messages = append(t.messages, message)
		fresh = append(fresh, message)
	}

	if maxTS > 0 && maxTS-1 > t.watermark {
		t.watermark = maxTS - 1
	}
	return fresh
}

// Since is the watermark for the next fetch.
func (t *Transcript) Since() int64 {
	return t.watermark
}

func (t *Transcript) Messages() []dto.Message {
	return t.messages
}

func (t *Transcript) Len() int {
	return len(t.messages)
}
