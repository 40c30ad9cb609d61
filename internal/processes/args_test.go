package processes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderArgs(t *testing.T) {
	t.Parallel()

	data := ArgsData{
		Executable: "motioninput.exe",
		WorkingDir: `C:\Games\MotionInput`,
		ConfigPath: `C:\Users\me\AppData\MotionInput\data\config.json`,
		Mode:       "group6/superexplorers_racing",
	}

	got, err := RenderArgs(DefaultArgs, data)
	require.NoError(t, err)
	require.Equal(t, []string{"--config", data.ConfigPath}, got)

	got, err = RenderArgs([]string{"--mode={{ .Mode | base }}", `--profile={{ .Mode | replace "/" "-" | upper }}`, "--plain"}, data)
	require.NoError(t, err)
	require.Equal(t, []string{"--mode=superexplorers_racing", "--profile=GROUP6-SUPEREXPLORERS_RACING", "--plain"}, got)
}

func TestRenderArgsErrors(t *testing.T) {
	t.Parallel()

	_, err := RenderArgs([]string{"{{ .Mode"}, ArgsData{})
	require.ErrorContains(t, err, "parse argument 0")

	_, err = RenderArgs([]string{"{{ .Unknown }}"}, ArgsData{})
	require.ErrorContains(t, err, "render argument 0")
}
