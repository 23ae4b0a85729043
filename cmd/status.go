package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/illarion/companion/internal/git"
	"github.com/illarion/companion/internal/security"
)

// Status shows the database state. It does not require a login.
func Status(ctx context.Context, configPath string) {
	app := Open(ctx, configPath)
	defer app.Close()

	status, err := app.Status(ctx)
	if err != nil {
		HandleError(err)
	}

	db := status.Database
	fmt.Printf("Database:   %s (%s)\n", db.Path, formatSize(db.Size))
	fmt.Printf("Schema:     v%s\n", db.Version)
	fmt.Printf("Created:    %s\n", db.Created.Local().Format(time.RFC3339))
	fmt.Printf("Modified:   %s\n", db.Modified.Local().Format(time.RFC3339))
	fmt.Printf("Notes:      %d (%s)\n", status.Notes, status.Backend)
	fmt.Printf("Categories: %d\n", status.Categories)

	fmt.Println()
	fmt.Println("Security methods:")
	if len(status.Setup) == 0 {
		fmt.Println("  (none set up)")
	}
	for _, t := range status.Setup {
		fmt.Printf("  + %s\n", t)
	}
	for _, t := range status.NotSetup {
		fmt.Printf("  - %s (not set up)\n", t)
	}
	if len(status.Setup) == 0 {
		fmt.Printf("Run 'companion setup --method %s' to create a login\n", security.TypePassword)
	}

	if warning := git.FormatStatus(status.Git); warning != "" {
		fmt.Println()
		fmt.Fprint(os.Stderr, warning)
	}
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
