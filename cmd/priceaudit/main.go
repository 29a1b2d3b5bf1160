package main

import "procurement-audit/internal/cli"

func main() {
	cli.Execute()
}
