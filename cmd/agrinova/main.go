// Command agrinova is the command-line companion of the AgriNova360 API:
// crop recommendations, chatbot answers, catalog and sensor views, and the
// server itself.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
