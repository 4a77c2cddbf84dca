package main

import "mapreader/internal/cli"

func main() {
	cli.Execute()
}
