package main

import (
	"os"

	"github.com/stemsi/exstem-portal/internal/cli"
)

func main() {
	if err := cli.NewMigrateCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
