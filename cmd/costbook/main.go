// Command costbook is a recipe cost calculator.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/costbook/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := cli.Execute(ctx, cli.NewRootCommand())
	stop()
	os.Exit(code)
}
