package cmd

import (
	"context"
	"fmt"
	"os"
)

// Compact compacts the database to reclaim unused space
func Compact(ctx context.Context, configPath string) {
	app := Open(ctx, configPath)
	defer app.Close()

	info, err := os.Stat(app.DatabasePath())
	if err != nil {
		HandleError(err)
	}
	sizeBefore := info.Size()

	if err := app.Compact(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(app.DatabasePath())
	if err != nil {
		HandleError(err)
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}
