package main

import (
	"github.com/joho/godotenv"

	"github.com/glasshouse-qa/vizguard-agent/pkg/cli"
)

func main() {
	// .env is a local convenience; missing is the normal case
	_ = godotenv.Load()
	cli.Execute()
}
