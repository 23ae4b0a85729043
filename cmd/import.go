package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/companion/internal/core"
	"github.com/illarion/companion/internal/exim"
	"github.com/illarion/companion/internal/security"
)

// Import merges an archive into the database. An empty strategy asks.
func Import(ctx context.Context, configPath, path, strategyName string, login bool, method security.Type) {
	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: companion import [--strategy skip|override|delete-all] <archive>")
		os.Exit(1)
	}

	var strategy exim.MergeStrategy
	var err error
	if strategyName == "" {
		strategy, err = core.AskMergeStrategy()
	} else {
		strategy, err = exim.ParseMergeStrategy(strategyName)
	}
	if err != nil {
		HandleError(err)
	}

	app := Open(ctx, configPath)
	defer app.Close()

	if login {
		Login(ctx, app, method)
	}

	password := GetArchivePassword(false)

	fmt.Fprintf(os.Stderr, "Importing %s (%s)\n", path, strategy)
	out := app.ImportFile(ctx, path, password, strategy, printProgress)
	HandleResult(out.Result)

	fmt.Print(core.FormatReports(out.Data))
}
