package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/companion/internal/security"
)

// Methods lists the security methods and what each allows
func Methods(ctx context.Context, configPath string) {
	app := Open(ctx, configPath)
	defer app.Close()

	status, err := app.Status(ctx)
	if err != nil {
		HandleError(err)
	}

	fmt.Println("Security methods:")
	for _, t := range append(status.Setup, status.NotSetup...) {
		access, err := app.Access(ctx, t)
		if err != nil {
			HandleError(err)
		}
		state := "not set up"
		if access.CanLogin {
			state = "set up"
		}
		fmt.Printf("  %-12s %s", t, state)
		if access.CanSetup {
			fmt.Print(" (can be set up)")
		}
		if available := app.Actor().ActorAvailable(); !available.Succeeded() {
			fmt.Printf(" (unavailable: %s)", available.Message)
		}
		fmt.Println()
	}
	if len(status.Setup) == 0 {
		fmt.Printf("\nRun 'companion setup --method %s' to create a login\n", security.TypePassword)
	}
}
