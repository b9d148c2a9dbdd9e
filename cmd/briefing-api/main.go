package main

import (
	"flag"
	"log"

	"github.com/intakehq/briefing-backend/internal/builder"
)

func main() {
	environment := flag.String("env", "local", "environment to load configuration for (local, prod, ...)")
	flag.Parse()

	app, err := builder.Build(*environment)
	if err != nil {
		log.Fatal("Failed to build application:", err)
	}

	if err := app.Run(); err != nil {
		log.Fatal("Application error:", err)
	}
}
