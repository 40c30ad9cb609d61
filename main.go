package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkwak13/winter-sports/internal/build"
	"github.com/mkwak13/winter-sports/internal/cmd/root"
	"github.com/mkwak13/winter-sports/internal/iostreams"
)

// Set at build time with -ldflags "-X main.VERSION=..."
var (
	VERSION = "dev"
	COMMIT  = "unknown"
	DATE    = "unknown"
)

func registerSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		sig := <-sigs
		fmt.Fprintln(os.Stderr, "received", sig, ", terminating...")
		cancel()
	}()
	return ctx
}

func main() {
	ctx := registerSignalHandler()
	root.Execute(ctx, iostreams.GetOSIOStreams(), &build.Info{
		Version: VERSION,
		Commit:  COMMIT,
		Date:    DATE,
	})
}
