package cmds

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var secretKeys = map[string]bool{
	"openai-api-key": true,
}

func NewConfigCommand() *cobra.Command {
	var showSecrets bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path := viper.ConfigFileUsed(); path != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# config file: %s\n", path)
			}
			out, err := effectiveConfigYAML(viper.GetViper(), showSecrets)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print secrets instead of masking them")
	return cmd
}

func effectiveConfigYAML(v *viper.Viper, showSecrets bool) ([]byte, error) {
	keys := v.AllKeys()
	sort.Strings(keys)

	settings := map[string]any{}
	for _, k := range keys {
		if k == "config" {
			continue
		}
		val := v.Get(k)
		if d, ok := val.(time.Duration); ok {
			val = d.String()
		}
		if secretKeys[k] && !showSecrets {
			if s, ok := val.(string); ok && s != "" {
				val = "****"
			}
		}
		settings[k] = val
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return nil, errors.Wrap(err, "marshal config")
	}
	return out, nil
}
