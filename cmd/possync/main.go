package main

import "go-pos-sync/internal/cli"

func main() {
	cli.Execute()
}
