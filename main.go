package main

import "github.com/isdelr/discordin/internal/cli"

func main() {
	cli.Execute()
}
