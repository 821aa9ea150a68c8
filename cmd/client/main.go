package main

import (
	"context"
	"fmt"
	"os"

	"github.com/iudanet/gophsync/internal/client/cli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	version := fmt.Sprintf("%s (built %s, commit %s)", Version, BuildDate, GitCommit)

	if err := cli.NewRootCommand(version).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
