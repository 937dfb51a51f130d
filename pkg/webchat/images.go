package webchat

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

var ErrImagesUnavailable = errors.New("image generation is not configured")

// ImageGenerator turns a prompt into a displayable image URL.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type OpenAIImageGenerator struct {
	client *openai.Client
	model  string
	size   string
}

func NewOpenAIImageGenerator(client *openai.Client, model, size string) *OpenAIImageGenerator {
	return &OpenAIImageGenerator{client: client, model: model, size: size}
}

// Generate returns the hosted image URL, or a data URL when the API only
// returns base64 content.
func (g *OpenAIImageGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt: prompt,
		Model:  g.model,
		Size:   g.size,
		N:      1,
	})
	if err != nil {
		return "", errors.Wrap(err, "create image")
	}
	if len(resp.Data) == 0 {
		return "", errors.New("image response was empty")
	}
	d := resp.Data[0]
	switch {
	case d.URL != "":
		return d.URL, nil
	case d.B64JSON != "":
		return "data:image/png;base64," + d.B64JSON, nil
	default:
		return "", errors.New("image response had neither url nor data")
	}
}

type noImages struct{}

func (noImages) Generate(context.Context, string) (string, error) {
	return "", ErrImagesUnavailable
}
