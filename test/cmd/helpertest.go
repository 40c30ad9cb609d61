package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkwak13/winter-sports/internal/build"
	"github.com/mkwak13/winter-sports/internal/cmd/common"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs"
	"github.com/mkwak13/winter-sports/internal/config"
	"github.com/mkwak13/winter-sports/internal/iostreams"
	"github.com/mkwak13/winter-sports/internal/processes"
	"github.com/mkwak13/winter-sports/internal/window"
	"github.com/spf13/cobra"
)

type MockHelper struct {
	GetCmdMock          func() *cobra.Command
	GetArgsMock         func() []string
	GetVerbMock         func() (verbs.VerbValue, error)
	GetStreamsMock      func() *iostreams.IOStreams
	GetConfigMock       func() (config.Hook, error)
	GetOutputFormatMock func() (common.OutputFormat, error)
	GetLoggerMock       func() (*slog.Logger, error)
	GetBuildInfoMock    func() (*build.Info, error)
	GetContextMock      func() context.Context
	GetWindowSystemMock func() (window.System, error)
	GetSpawnerMock      func() processes.Spawner
}

func (m *MockHelper) GetCmd() *cobra.Command {
	if m.GetCmdMock == nil {
		return &cobra.Command{}
	}
	return m.GetCmdMock()
}

func (m *MockHelper) GetArgs() []string {
	if m.GetArgsMock == nil {
		return nil
	}
	return m.GetArgsMock()
}

func (m *MockHelper) GetVerb() (verbs.VerbValue, error) {
	if m.GetVerbMock == nil {
		return "", fmt.Errorf("no verb configured")
	}
	return m.GetVerbMock()
}

func (m *MockHelper) GetStreams() *iostreams.IOStreams {
	return m.GetStreamsMock()
}

func (m *MockHelper) GetConfig() (config.Hook, error) {
	return m.GetConfigMock()
}

func (m *MockHelper) GetOutputFormat() (common.OutputFormat, error) {
	return m.GetOutputFormatMock()
}

func (m *MockHelper) GetLogger() (*slog.Logger, error) {
	return m.GetLoggerMock()
}

func (m *MockHelper) GetBuildInfo() (*build.Info, error) {
	return m.GetBuildInfoMock()
}

func (m *MockHelper) GetContext() context.Context {
	if m.GetContextMock == nil {
		return context.Background()
	}
	return m.GetContextMock()
}

func (m *MockHelper) GetWindowSystem() (window.System, error) {
	return m.GetWindowSystemMock()
}

func (m *MockHelper) GetSpawner() processes.Spawner {
	return m.GetSpawnerMock()
}
