package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/companion/internal/crypto"
	"github.com/illarion/companion/internal/security"
)

// Setup creates the first credentials for a method
func Setup(ctx context.Context, configPath, methodName string) {
	app := Open(ctx, configPath)
	defer app.Close()

	method := ParseMethod(methodName)

	var password []byte
	if method == security.TypePassword {
		var err error
		password, err = GetNewPassword("Choose password: ")
		if err != nil {
			HandleError(err)
		}
		defer crypto.ClearBytes(password)
	}

	HandleResult(app.SetCredentials(ctx, method, nil, password))
	fmt.Printf("%s set up\n", method)
}
