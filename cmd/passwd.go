package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/companion/internal/core"
	"github.com/illarion/companion/internal/crypto"
	"github.com/illarion/companion/internal/security"
)

// Passwd changes the login password
func Passwd(ctx context.Context, configPath string) {
	app := Open(ctx, configPath)
	defer app.Close()

	currentPassword := GetPasswordOrExit("Current password: ")
	defer crypto.ClearBytes(currentPassword)

	// The environment password is the current one, so always prompt here
	newPassword, err := core.ReadPasswordConfirm("New password: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer crypto.ClearBytes(newPassword)

	HandleResult(app.SetCredentials(ctx, security.TypePassword, currentPassword, newPassword))

	// Old preference pages stay in the file until compaction
	if err := app.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Println("password changed successfully")
}
