package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/illarion/companion/internal/core"
	"github.com/illarion/companion/internal/git"
	"github.com/illarion/companion/internal/security"
)

// Export writes notes and categories to a password-protected archive
func Export(ctx context.Context, configPath, path string, login bool, method security.Type) {
	app := Open(ctx, configPath)
	defer app.Close()

	if login {
		Login(ctx, app, method)
	}
	if path == "" {
		path = core.ArchiveName(time.Now())
	}

	password := GetArchivePassword(true)

	fmt.Fprintf(os.Stderr, "Exporting to %s\n", path)
	HandleResult(app.ExportToFile(ctx, path, password, printProgress))

	if warning := git.FormatStatus(core.ArchiveExposure(path)); warning != "" {
		fmt.Fprint(os.Stderr, warning)
	}
	fmt.Printf("exported: %s\n", path)
}
