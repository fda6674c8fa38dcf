package main

import "peerdrop/internal/cli"

func main() {
	cli.Execute()
}
