package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/companion/internal/config"
	"github.com/illarion/companion/internal/core"
	"github.com/illarion/companion/internal/crypto"
	"github.com/illarion/companion/internal/exim"
	"github.com/illarion/companion/internal/logger"
	"github.com/illarion/companion/internal/result"
	"github.com/illarion/companion/internal/security"
)

// ArchivePasswordEnv may hold the archive password for non-interactive use
const ArchivePasswordEnv = "COMPANION_ARCHIVE_PASSWORD"

// Open loads the configuration and opens the database, exiting on error.
// The caller must Close the result.
func Open(ctx context.Context, configPath string) *core.Companion {
	cfg, err := config.Load(configPath)
	if err != nil {
		HandleError(err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		HandleError(err)
	}

	app, err := core.Open(ctx, core.Options{Config: cfg, Logger: log})
	if err != nil {
		HandleError(err)
	}
	return app
}

// GetPassword retrieves password from environment or prompts user
// The caller is responsible for calling crypto.ClearBytes on the returned password
func GetPassword(prompt string) ([]byte, error) {
	password := core.GetPasswordFromEnv()
	if password != nil {
		return password, nil
	}

	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return password, nil
}

// GetPasswordOrExit is like GetPassword but exits on error
func GetPasswordOrExit(prompt string) []byte {
	password, err := GetPassword(prompt)
	if err != nil {
		HandleError(err)
	}
	return password
}

// GetNewPassword reads a new password with confirmation unless the
// environment provides one
func GetNewPassword(prompt string) ([]byte, error) {
	password := core.GetPasswordFromEnv()
	if password != nil {
		return password, nil
	}
	return core.ReadPasswordConfirm(prompt)
}

// GetArchivePassword reads the archive password. New archives ask for
// confirmation.
func GetArchivePassword(confirm bool) string {
	if password := os.Getenv(ArchivePasswordEnv); password != "" {
		return password
	}

	var (
		password []byte
		err      error
	)
	if confirm {
		password, err = core.ReadPasswordConfirm("Archive password: ")
	} else {
		password, err = core.ReadPassword("Archive password: ")
	}
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)
	return string(password)
}

// ParseMethod parses a method flag, exiting on error
func ParseMethod(name string) security.Type {
	t, err := security.ParseType(name)
	if err != nil {
		HandleError(err)
	}
	return t
}

// Login verifies the user with method unless already logged in
func Login(ctx context.Context, app *core.Companion, method security.Type) {
	if app.Actor().Clearance() > 0 {
		return
	}
	var password []byte
	if method == security.TypePassword {
		password = GetPasswordOrExit("Password: ")
		defer crypto.ClearBytes(password)
	}
	HandleResult(app.Login(ctx, method, password))
}

// printProgress prints one line per finished stage
func printProgress(p exim.Progress) {
	if p.Fraction >= 1 {
		fmt.Fprintf(os.Stderr, "  %-18s done\n", p.Stage)
	}
}

// HandleResult exits with a message when r failed
func HandleResult(r result.Result) {
	if !r.Succeeded() {
		HandleError(r.Err())
	}
}

// HandleError handles common errors consistently
func HandleError(err error) {
	switch {
	case errors.Is(err, result.ErrIncorrect):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	case errors.Is(err, result.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Run 'companion setup' first\n")
	case errors.Is(err, core.ErrLoginRequired):
		fmt.Fprintf(os.Stderr, "Error: login required\n")
		fmt.Fprintf(os.Stderr, "Pass --login to authenticate first\n")
	case errors.Is(err, result.ErrCancelled), errors.Is(err, context.Canceled):
		fmt.Fprintf(os.Stderr, "Error: operation cancelled\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}
