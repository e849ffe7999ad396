package main

import (
	"log"

	"github.com/MrSnakeDoc/stash/internal/devapi"
)

func main() {
	app, err := devapi.New()
	if err != nil {
		log.Fatalf("❌ stash-devapi failed to start: %v", err)
	}
	if err := app.Run(); err != nil {
		log.Fatalf("❌ stash-devapi failed: %v", err)
	}
}
