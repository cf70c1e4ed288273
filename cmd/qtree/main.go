// Command qtree builds, canonicalizes and stores Q?T:F logic networks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/qtree/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
