package webchat

import (
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/weaviate/tiktoken-go"
)

// per-message framing overhead in chat completion requests
const messageOverheadTokens = 4

type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts cl100k_base tokens. If the encoding cannot be
// loaded it falls back to an estimate of four bytes per token.
type TiktokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{}
}

func (c *TiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Warn().Err(err).Str("component", "webchat").Msg("tiktoken unavailable, estimating token counts")
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return estimateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && utf8.RuneCountInString(text) > 0 {
		n = 1
	}
	return n
}

// TrimHistory drops the oldest non-system messages until the estimated size
// fits maxTokens. System messages and the newest message are always kept.
// maxTokens <= 0 disables trimming.
func TrimHistory(messages []Message, maxTokens int, counter TokenCounter) []Message {
	if maxTokens <= 0 || len(messages) == 0 || counter == nil {
		return messages
	}

	cost := make([]int, len(messages))
	total := 0
	for i, m := range messages {
		cost[i] = counter.Count(m.Content) + messageOverheadTokens
		total += cost[i]
	}

	drop := make([]bool, len(messages))
	last := len(messages) - 1
	for i := 0; i < last && total > maxTokens; i++ {
		if messages[i].Role == RoleSystem {
			continue
		}
		drop[i] = true
		total -= cost[i]
	}

	out := make([]Message, 0, len(messages))
	for i, m := range messages {
		if !drop[i] {
			out = append(out, m)
		}
	}
	return out
}
