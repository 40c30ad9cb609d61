package viper

import (
	"strings"

	"github.com/mkwak13/winter-sports/internal/meta"
	"github.com/mkwak13/winter-sports/internal/util"
	v "github.com/spf13/viper"
)

// EnvKeyReplacer maps config paths such as "embed.poll-interval" to the
// EMBED_POLL_INTERVAL part of an environment variable name.
var EnvKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// InitializeDefaultViper initializes a viper instance with default values and a path to a file
// If the file does not exist, it will be created with the default values
func InitializeDefaultViper(defaultValues map[string]any, path string) (*v.Viper, error) {
	err := util.InitDir(path, 0o755)
	if err != nil {
		return nil, err
	}

	rv := NewViper(path)

	if len(rv.AllSettings()) == 0 {
		// nothing was loaded, so seed the file with the defaults
		if err := rv.MergeConfigMap(defaultValues); err != nil {
			return nil, err
		}
		if err := rv.WriteConfig(); err != nil {
			return nil, err
		}
	}

	return rv, nil
}

// NewViperE loads path strictly, failing when it cannot be read.
func NewViperE(path string) (*v.Viper, error) {
	rv := newViper(path)
	if err := rv.ReadInConfig(); err != nil {
		return nil, err
	}
	return rv, nil
}

// NewViper loads path if it can, and otherwise starts empty.
func NewViper(path string) *v.Viper {
	rv := newViper(path)
	_ = rv.ReadInConfig()
	return rv
}

// ConfigureEnvVars makes vip resolve keys from environment variables named
// PREFIX_KEY_PATH.
func ConfigureEnvVars(vip *v.Viper, prefix string) {
	vip.SetEnvPrefix(prefix)
	vip.SetEnvKeyReplacer(EnvKeyReplacer)
	vip.AutomaticEnv()
}

func newViper(path string) *v.Viper {
	rv := v.New()
	rv.SetConfigFile(path)
	ConfigureEnvVars(rv, meta.CLIName)
	return rv
}
