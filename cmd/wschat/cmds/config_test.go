package cmds

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEffectiveConfigYAMLMasksSecrets(t *testing.T) {
	v := viper.New()
	v.Set("openai-api-key", "sk-secret")
	v.Set("model", "gpt-4")
	v.Set("session-idle-timeout", 30*time.Minute)
	v.Set("config", "/tmp/x.yaml")

	out, err := effectiveConfigYAML(v, false)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(out, &got))
	require.Equal(t, "****", got["openai-api-key"])
	require.Equal(t, "gpt-4", got["model"])
	require.Equal(t, "30m0s", got["session-idle-timeout"])
	require.NotContains(t, got, "config")

	out, err = effectiveConfigYAML(v, true)
	require.NoError(t, err)
	require.Contains(t, string(out), "sk-secret")
}
