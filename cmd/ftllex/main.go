package main

import (
	"os"

	"github.com/ftllex/ftllex/cli"
)

func main() {
	os.Exit(cli.Execute())
}
