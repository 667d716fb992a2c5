package main

import (
	"github.com/joho/godotenv"

	"helpdesk/internal/cli"
)

func main() {
	// Provider API keys and database DSNs come from the environment;
	// a local .env is honored when present.
	_ = godotenv.Load()

	cli.Execute()
}
