package main

import (
	"fmt"
	"os"

	"github.com/wrenfield/mentorloop-backend/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Start()

	if err := application.Run(); err != nil {
		application.Log.Warn("Server stopped", "error", err)
	}
}
