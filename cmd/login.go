package cmd

import (
	"context"
	"fmt"
)

// LoginCheck verifies the credentials of a method without changing anything
func LoginCheck(ctx context.Context, configPath, methodName string) {
	app := Open(ctx, configPath)
	defer app.Close()

	Login(ctx, app, ParseMethod(methodName))
	fmt.Println("Login successful")
}
