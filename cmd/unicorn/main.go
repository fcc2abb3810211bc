package main

import "github.com/nfrund/unicorn/cmd/unicorn/cmd"

func main() {
	cmd.Execute()
}
