package cmds

import (
	"io"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/wschat/pkg/logging"
)

// LogSettingsFromViper reads the global log flags.
func LogSettingsFromViper() logging.Settings {
	s := logging.DefaultSettings()
	s.Level = viper.GetString("log-level")
	s.Format = viper.GetString("log-format")
	s.File = viper.GetString("log-file")
	return s
}

// bindFlags makes every local flag of cmd readable through viper under its
// own name, overridable by WSCHAT_<NAME> and the config file.
func bindFlags(cmd *cobra.Command) {
	cobra.CheckErr(viper.BindPFlags(cmd.Flags()))
}

var (
	logMu     sync.Mutex
	logCloser io.Closer
)

// InitLog installs the global logger, closing the output of any previous
// one.
func InitLog(s logging.Settings) error {
	closer, err := logging.Init(s)
	if err != nil {
		return err
	}
	logMu.Lock()
	prev := logCloser
	logCloser = closer
	logMu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

func CloseLog() {
	logMu.Lock()
	defer logMu.Unlock()
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}
