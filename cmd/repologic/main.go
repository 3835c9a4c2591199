package main

import "repologic/internal/cli"

func main() {
	cli.Execute()
}
