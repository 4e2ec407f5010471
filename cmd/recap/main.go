package main

import "github.com/vietddude/recap/internal/cli"

func main() {
	cli.Execute()
}
