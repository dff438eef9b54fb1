package main

import (
	"AlphaScout/internal/cli"
)

func main() {
	cli.Execute()
}
