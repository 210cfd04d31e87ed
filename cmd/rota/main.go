package main

import (
	"context"
	"fmt"
	"os"

	commands "github.com/lewisedginton/rota/internal/cli"
)

var version = "dev"

func main() {
	app := commands.NewApp(version)
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
