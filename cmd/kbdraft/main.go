package main

import "kbdraft/internal/cli"

func main() {
	cli.Execute()
}
