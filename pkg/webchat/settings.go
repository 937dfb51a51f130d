package webchat

import (
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultSystemPrompt = "You are a helpful AI assistant."
	DefaultGreeting     = "Hello! 👋 I'm your AI assistant. How can I help you today?"
	// ApologyText is sent when a completion fails. It is not recorded in the
	// session history.
	ApologyText = "Sorry, I couldn't generate a response right now. Please try again."
)

// Settings configures the chat server.
type Settings struct {
	Addr string

	SystemPrompt string
	Greeting     string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string
	Temperature   float32
	// MaxContextTokens bounds the history sent to the model. Zero disables
	// trimming.
	MaxContextTokens  int
	CompletionTimeout time.Duration

	ImageModel string
	ImageSize  string

	SessionIdleTimeout time.Duration
	EvictInterval      time.Duration
	ShutdownTimeout    time.Duration
	ReadLimit          int64
}

func DefaultSettings() Settings {
	return Settings{
		Addr:               ":8000",
		SystemPrompt:       DefaultSystemPrompt,
		Greeting:           DefaultGreeting,
		Model:              "gpt-4",
		Temperature:        0.6,
		MaxContextTokens:   6000,
		CompletionTimeout:  2 * time.Minute,
		ImageModel:         "gpt-image-1",
		ImageSize:          "512x512",
		SessionIdleTimeout: 30 * time.Minute,
		EvictInterval:      time.Minute,
		ShutdownTimeout:    30 * time.Second,
		ReadLimit:          1 << 20,
	}
}

func (s Settings) Validate() error {
	if s.Addr == "" {
		return errors.New("addr is empty")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return errors.Errorf("temperature %v out of range [0,2]", s.Temperature)
	}
	if s.MaxContextTokens < 0 {
		return errors.Errorf("max context tokens %d is negative", s.MaxContextTokens)
	}
	if s.SessionIdleTimeout < 0 || s.EvictInterval < 0 {
		return errors.New("eviction durations must not be negative")
	}
	return nil
}
