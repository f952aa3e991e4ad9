package main

import "github.com/canopy-network/canopy-dex/cmd/cli"

func main() {
	cli.Execute()
}
