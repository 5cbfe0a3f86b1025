package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"paperchat/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.Serve(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
		os.Exit(1)
	}
}
