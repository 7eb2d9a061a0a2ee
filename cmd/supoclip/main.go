package main

import "github.com/supoclip/supoclip/internal/cli"

func main() {
	cli.Main()
}
