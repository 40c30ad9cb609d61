package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mkwak13/winter-sports/internal/cmd/common"
	"github.com/mkwak13/winter-sports/internal/meta"
	"github.com/mkwak13/winter-sports/internal/util/viper"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var defaultConfigFileName = "config.yaml"

// Returns the expanded default config path depending on what
// environment variables are set. If XDG_CONFIG_HOME is set,
// the default is $XDG_CONFIG_HOME/embedctl,
// otherwise the default is os.UserHomeDir()/.config/embedctl.
// If these values are not set, an error is returned.
func GetDefaultConfigPath() (string, error) {
	val, set := os.LookupEnv("XDG_CONFIG_HOME")
	if !set || val == "" {
		var err error
		val, err = os.UserHomeDir()
		if err != nil {
			return "", err
		}
		val = filepath.Join(val, ".config")
	}
	val = filepath.Join(val, meta.CLIName)
	return os.ExpandEnv(val), nil
}

func GetDefaultConfigFilePath() (string, error) {
	path, err := GetDefaultConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(path, defaultConfigFileName), nil
}

// GetConfig returns the configuration for this instance of the CLI
func GetConfig(path string, profile string, defaultConfigFilePath string) (*ProfiledConfig, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); err == nil {
		// a file the user points at is loaded strictly
		vip, err := viper.NewViperE(path)
		if err != nil {
			return nil, err
		}
		return BuildProfiledConfig(profile, path, vip), nil
	}

	if path != defaultConfigFilePath {
		return nil, fmt.Errorf("the provided config file path does not exist")
	}

	// first run: create the default file
	vip, err := viper.InitializeDefaultViper(getDefaultConfig(profile, path), path)
	if err != nil {
		return nil, err
	}
	return BuildProfiledConfig(profile, path, vip), nil
}

// Empty type to represent the _type_ Config. Genesis is to support a key in a Context
type Key struct{}

// Config is a global instance of the Key type
var ConfigKey = Key{}

// Hook provides a generatlization of the Viper interface
// but allows some control, specifically over the Save functionality
// which we extend to provide safer file management handling
type Hook interface {
	// Save writes the configuration to the file system
	Save() error
	// GetString returns a string value from the configuration
	GetString(key string) string
	// GetBool returns a boolean value from the configuration
	GetBool(key string) bool
	// GetInt returns an integer value from the configuration
	GetInt(key string) int
	// GetIntOrElse returns an integer value from the configuration or a default
	GetIntOrElse(key string, orElse int) int
	// GetFloat64 returns a float value from the configuration
	GetFloat64(key string) float64
	// GetDuration returns a duration value from the configuration
	GetDuration(key string) time.Duration
	// GetStringSlice returns a slice of strings from the configuration
	GetStringSlice(key string) []string
	// IsSet reports whether key has a value from any source
	IsSet(key string) bool
	// SetString sets an override for a given string
	SetString(key string, value string)
	// Set sets an override for a given key
	Set(k string, v any)
	// Get returns a value from the configuration
	Get(key string) any
	// BindFlag takes a specific configuration path and
	// binds it to a specific flag
	BindFlag(configPath string, f *pflag.Flag) error
	// The profile for this configuration
	GetProfile() string
	// The file path used to load this configuration
	GetPath() string
}

// ProfiledConfig is a Viper but with an associated profile ProfileName
//
//	allows for extraction of the profile specific sub-configuration
//	and implements the Hook interface for more restricted interactions
//	with the configuration system
type ProfiledConfig struct {
	*v.Viper
	subViper    *v.Viper
	ProfileName string
	Path        string
}

var _ Hook = (*ProfiledConfig)(nil)

func (p *ProfiledConfig) GetProfile() string {
	return p.ProfileName
}

// Save writes the profile's values back under its key and persists the file.
func (p *ProfiledConfig) Save() error {
	p.Viper.Set(p.ProfileName, p.subViper.AllSettings())
	return p.WriteConfig()
}

func (p *ProfiledConfig) GetString(key string) string {
	return p.subViper.GetString(key)
}

func (p *ProfiledConfig) GetBool(key string) bool {
	return p.subViper.GetBool(key)
}

func (p *ProfiledConfig) GetInt(key string) int {
	return p.subViper.GetInt(key)
}

func (p *ProfiledConfig) GetIntOrElse(key string, orElse int) int {
	if p.subViper.IsSet(key) {
		return p.subViper.GetInt(key)
	}
	return orElse
}

func (p *ProfiledConfig) GetFloat64(key string) float64 {
	return p.subViper.GetFloat64(key)
}

func (p *ProfiledConfig) GetDuration(key string) time.Duration {
	return p.subViper.GetDuration(key)
}

func (p *ProfiledConfig) GetStringSlice(key string) []string {
	return p.subViper.GetStringSlice(key)
}

func (p *ProfiledConfig) IsSet(key string) bool {
	return p.subViper.IsSet(key)
}

func (p *ProfiledConfig) Get(key string) any {
	return p.subViper.Get(key)
}

func (p *ProfiledConfig) BindFlag(configPath string, f *pflag.Flag) error {
	return p.subViper.BindPFlag(configPath, f)
}

func (p *ProfiledConfig) SetString(k string, v string) {
	p.subViper.Set(k, v)
}

func (p *ProfiledConfig) Set(k string, v any) {
	p.subViper.Set(k, v)
}

func (p *ProfiledConfig) GetPath() string {
	return p.Path
}

// ProfileEnvPrefix is the environment prefix of a profile's keys, e.g.
// EMBEDCTL_KIOSK_A for profile "kiosk-a".
func ProfileEnvPrefix(profile string) string {
	return strings.ToUpper(meta.CLIName + "_" + viper.EnvKeyReplacer.Replace(profile))
}

func BuildProfiledConfig(profile string, path string, mainv *v.Viper) *ProfiledConfig {
	subv := mainv.Sub(profile)
	if subv == nil {
		// The main viper is valid but holds nothing for this profile. A Sub
		// inherits the parent's env handling; a fresh viper needs it wired so
		// EMBEDCTL_<PROFILE>_<KEY> still resolves.
		subv = v.New()
		viper.ConfigureEnvVars(subv, ProfileEnvPrefix(profile))
	}

	return &ProfiledConfig{
		Viper:       mainv,
		ProfileName: profile,
		subViper:    subv,
		Path:        path,
	}
}

func getDefaultConfig(profileName, configFilePath string) map[string]any {
	configDir := filepath.Dir(configFilePath)
	defaultLogPath := filepath.Join(configDir, "logs", meta.CLIName+".log")

	return map[string]any{
		profileName: map[string]any{
			common.OutputConfigPath:   common.DefaultOutputFormat,
			common.LogLevelConfigPath: common.DefaultLogLevel,
			common.LogFileConfigPath:  defaultLogPath,
			"app": map[string]any{
				"executable":   common.DefaultExecutable,
				"working-dir":  "",
				"window-title": common.DefaultWindowTitle,
			},
			"mode": map[string]any{
				"name":      common.DefaultMode,
				"template":  common.DefaultModeTemplate,
				"modes-dir": common.DefaultModesDir,
				"config":    filepath.Join(configDir, "app", "config.json"),
			},
			"embed": map[string]any{
				"reuse-previous":        true,
				"terminate-on-teardown": false,
				"freeze-on-start":       true,
				"poll-interval":         common.DefaultPollInterval,
				"origin":                common.OriginTopLeft,
				"rect": map[string]any{
					"x":      0,
					"y":      0,
					"width":  1280,
					"height": 720,
				},
			},
		},
	}
}
