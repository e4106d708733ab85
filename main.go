package main

import (
	"os"

	"eshop/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
