package stop

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mkwak13/winter-sports/internal/cmd/common"
	"github.com/mkwak13/winter-sports/internal/host"
	"github.com/mkwak13/winter-sports/internal/processes"
	"github.com/mkwak13/winter-sports/internal/window"
	testcmd "github.com/mkwak13/winter-sports/test/cmd"
	"github.com/stretchr/testify/require"
)

func TestStopClosesWindowAndRecord(t *testing.T) {
	f := testcmd.NewFixture(t, "a/b")
	h := f.Sys.Open(common.DefaultWindowTitle)

	record := processes.Record{ID: "x", PID: 10, Executable: "MotionInput.exe"}
	recordPath := filepath.Join(filepath.Dir(f.Config.GetPath()), processes.RecordFileName)
	require.NoError(t, processes.WriteRecord(recordPath, record))

	require.NoError(t, run(f.Helper))

	require.Equal(t, []window.Handle{h}, f.Sys.Closed())
	require.Equal(t, "asked \"MotionInput\" to close\n", f.Out.String())
	_, err := os.Stat(recordPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestStopWithoutWindowIsNoop(t *testing.T) {
	f := testcmd.NewFixture(t, "a/b")

	require.NoError(t, run(f.Helper))
	require.NoError(t, run(f.Helper))

	require.Empty(t, f.Sys.Closed())
	require.Equal(t, "no window titled \"MotionInput\" is open\n"+
		"no window titled \"MotionInput\" is open\n", f.Out.String())
}

func TestStopYAMLOutput(t *testing.T) {
	f := testcmd.NewFixture(t, "a/b")
	f.SetOutput(common.YAML)
	f.Sys.Open(common.DefaultWindowTitle)

	require.NoError(t, run(f.Helper))
	require.Contains(t, f.Out.String(), "closed: true")
	require.Contains(t, f.Out.String(), "window_title: MotionInput")
}

func TestStopWithoutAppConfiguration(t *testing.T) {
	f := testcmd.NewFixture(t, "a/b")
	settings, err := host.SettingsFromConfig(f.Config)
	require.NoError(t, err)
	require.NoError(t, os.Remove(settings.Template))
	h := f.Sys.Open(common.DefaultWindowTitle)

	require.NoError(t, run(f.Helper))

	require.Equal(t, []window.Handle{h}, f.Sys.Closed())
	_, err = os.Stat(settings.ConfigPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}
