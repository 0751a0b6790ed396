// Package main is the mcp4xxx command itself.
package main

import (
	"log"
	"os"

	"github.com/ccrighton/mcp4xxx/cli"
	"github.com/ccrighton/mcp4xxx/components/digipot/mcp4xxx"
)

func main() {
	if err := cli.NewApp(mcp4xxx.NewFromConfig).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
