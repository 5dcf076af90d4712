package main

import (
	"github.com/joho/godotenv"

	"github.com/tomasfh/compwatch/cmd"
)

func main() {
	// Load .env if present; CI schedulers pass secrets this way.
	_ = godotenv.Load(".env")

	cmd.Execute()
}
