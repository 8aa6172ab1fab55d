package main

import "github.com/nathfavour/flora/internal/cli"

func main() {
	cli.Execute()
}
