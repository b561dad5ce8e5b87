// # cmd/phpmodel/main.go
package main

import (
	"os"

	"phpmodel/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
