package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"vogon/internal/cli"
	"vogon/internal/commands"
)

func main() {
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
