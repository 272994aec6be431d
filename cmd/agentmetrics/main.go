package main

import "agentmetrics/internal/cli"

func main() {
	cli.Execute()
}
