package main

import "github.com/shenikar/safety_dispatch/cmd/panicctl/cmd"

func main() {
	cmd.Execute()
}
