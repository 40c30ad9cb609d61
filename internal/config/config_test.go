package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mkwak13/winter-sports/internal/cmd/common"
	utilviper "github.com/mkwak13/winter-sports/internal/util/viper"
	"github.com/stretchr/testify/require"
)

func TestBuildProfiledConfig_ProfileEnvWithDashes(t *testing.T) {
	t.Setenv("EMBEDCTL_KIOSK_A_APP_WINDOW_TITLE", "MotionInput Kiosk")

	profile := "kiosk-a"
	mainv := utilviper.NewViper("nonexistent.yaml")

	cfg := BuildProfiledConfig(profile, "nonexistent.yaml", mainv)

	require.Equal(t, "MotionInput Kiosk", cfg.GetString(common.WindowTitleConfigPath))
	require.Equal(t, "EMBEDCTL_KIOSK_A", ProfileEnvPrefix(profile))
}

func TestGetConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedctl", "config.yaml")

	cfg, err := GetConfig(path, common.DefaultProfile, path)
	require.NoError(t, err)

	require.Equal(t, path, cfg.GetPath())
	require.Equal(t, common.DefaultProfile, cfg.GetProfile())
	require.Equal(t, "text", cfg.GetString(common.OutputConfigPath))
	require.Equal(t, common.DefaultWindowTitle, cfg.GetString(common.WindowTitleConfigPath))
	require.Equal(t, common.DefaultMode, cfg.GetString(common.ModeConfigPath))
	require.Equal(t, 500*time.Millisecond, cfg.GetDuration(common.PollIntervalConfigPath))
	require.True(t, cfg.GetBool(common.ReusePreviousConfigPath))
	require.InDelta(t, 1280, cfg.GetFloat64(common.RectWidthConfigPath), 0)
	require.Equal(t,
		filepath.Join(filepath.Dir(path), "logs", "embedctl.log"),
		cfg.GetString(common.LogFileConfigPath))

	// Reloading reads the file that was just written.
	again, err := GetConfig(path, common.DefaultProfile, path)
	require.NoError(t, err)
	require.Equal(t, common.DefaultExecutable, again.GetString(common.ExecutableConfigPath))
}

func TestGetConfigRejectsMissingExplicitPath(t *testing.T) {
	dir := t.TempDir()

	_, err := GetConfig(filepath.Join(dir, "other.yaml"), common.DefaultProfile, filepath.Join(dir, "config.yaml"))
	require.Error(t, err)
}

func TestSavePersistsProfileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := GetConfig(path, common.DefaultProfile, path)
	require.NoError(t, err)

	cfg.SetString(common.ModeConfigPath, "group1/walking")
	require.NoError(t, cfg.Save())

	reloaded, err := GetConfig(path, common.DefaultProfile, path)
	require.NoError(t, err)
	require.Equal(t, "group1/walking", reloaded.GetString(common.ModeConfigPath))
}

func TestGetDefaultConfigFilePathHonorsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := GetDefaultConfigFilePath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "embedctl", "config.yaml"), path)
}
