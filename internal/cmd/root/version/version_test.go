package version

import (
	"encoding/json"
	"testing"

	"github.com/mkwak13/winter-sports/internal/build"
	"github.com/mkwak13/winter-sports/internal/cmd/common"
	"github.com/mkwak13/winter-sports/internal/config"
	"github.com/mkwak13/winter-sports/internal/iostreams"
	"github.com/mkwak13/winter-sports/test/cmd"
	testConfig "github.com/mkwak13/winter-sports/test/config"
	"github.com/stretchr/testify/require"
)

func newHelper(format common.OutputFormat, showCommit bool) (*cmd.MockHelper, *iostreams.IOStreams) {
	all, _, _, _ := iostreams.NewTestIOStreams()
	return &cmd.MockHelper{
		GetOutputFormatMock: func() (common.OutputFormat, error) {
			return format, nil
		},
		GetConfigMock: func() (config.Hook, error) {
			return &testConfig.MockConfigHook{
				GetBoolMock: func(_ string) bool {
					return showCommit
				},
			}, nil
		},
		GetStreamsMock: func() *iostreams.IOStreams {
			return &all
		},
		GetBuildInfoMock: func() (*build.Info, error) {
			return &build.Info{
				Version: "dev",
				Commit:  "abc123",
				Date:    "2026-01-02",
			}, nil
		},
	}, &all
}

func Test_VersionCmd(t *testing.T) {
	helper, streams := newHelper(common.TEXT, false)

	require.NoError(t, run(helper))
	require.Equal(t, "dev\n", streams.Out.(interface{ String() string }).String())
}

func Test_VersionCmdShowCommit(t *testing.T) {
	helper, streams := newHelper(common.TEXT, true)

	require.NoError(t, run(helper))
	require.Equal(t, "dev (abc123)\n", streams.Out.(interface{ String() string }).String())
}

func Test_VersionCmdJsonOutput(t *testing.T) {
	helper, streams := newHelper(common.JSON, true)

	require.NoError(t, run(helper))

	var actual versionResult
	require.NoError(t, json.Unmarshal([]byte(streams.Out.(interface{ String() string }).String()), &actual))
	require.Equal(t, versionResult{Version: "dev", Commit: "abc123", Date: "2026-01-02"}, actual)
}

func Test_NewVersionResultHidesCommit(t *testing.T) {
	info := &build.Info{Version: "1.2.3", Commit: "abc123", Date: "2026-01-02"}

	require.Equal(t, versionResult{Version: "1.2.3"}, newVersionResult(info, false))
	require.Equal(t, versionResult{Version: "1.2.3", Commit: "abc123", Date: "2026-01-02"}, newVersionResult(info, true))
}
