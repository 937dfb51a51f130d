package cmds

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/wschat/pkg/webchat"
)

func serveSettingsFromViper() webchat.Settings {
	s := webchat.DefaultSettings()
	s.Addr = viper.GetString("addr")
	s.SystemPrompt = viper.GetString("system-prompt")
	s.Greeting = viper.GetString("greeting")
	s.OpenAIAPIKey = viper.GetString("openai-api-key")
	s.OpenAIBaseURL = viper.GetString("openai-base-url")
	s.Model = viper.GetString("model")
	s.Temperature = float32(viper.GetFloat64("temperature"))
	s.MaxContextTokens = viper.GetInt("max-context-tokens")
	s.ImageModel = viper.GetString("image-model")
	s.ImageSize = viper.GetString("image-size")
	s.SessionIdleTimeout = viper.GetDuration("session-idle-timeout")
	s.EvictInterval = viper.GetDuration("evict-interval")
	return s
}

func NewServeCommand() *cobra.Command {
	d := webchat.DefaultSettings()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := webchat.NewServer(serveSettingsFromViper())
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.String("addr", d.Addr, "Listen address")
	f.String("system-prompt", d.SystemPrompt, "System prompt sent first in every completion")
	f.String("greeting", d.Greeting, "Message sent to every new connection")
	f.String("openai-api-key", "", "OpenAI API key (also read from OPENAI_API_KEY); replies echo when empty")
	f.String("openai-base-url", "", "Override the OpenAI API base URL")
	f.String("model", d.Model, "Chat completion model")
	f.Float64("temperature", float64(d.Temperature), "Sampling temperature")
	f.Int("max-context-tokens", d.MaxContextTokens, "Trim history sent to the model to this many tokens (0 disables)")
	f.String("image-model", d.ImageModel, "Image generation model")
	f.String("image-size", d.ImageSize, "Generated image size")
	f.Duration("session-idle-timeout", d.SessionIdleTimeout, "Evict sessions without connections after this long (0 disables)")
	f.Duration("evict-interval", d.EvictInterval, "How often idle sessions are checked")
	bindFlags(cmd)
	cobra.CheckErr(viper.BindEnv("openai-api-key", "WSCHAT_OPENAI_API_KEY", "OPENAI_API_KEY"))
	return cmd
}
