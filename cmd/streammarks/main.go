package main

import (
	"log"

	"github.com/MrSnakeDoc/streammarks/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ streammarks failed to start: %v", err)
	}
}
