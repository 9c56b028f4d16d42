package main

import "recycle-watch/internal/cli"

func main() {
	cli.Execute()
}
