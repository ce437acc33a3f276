package main

import "github.com/Balram04/assigno/internal/cli"

func main() {
	cli.Execute()
}
