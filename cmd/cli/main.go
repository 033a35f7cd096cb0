package main

import "devstudio/cmd/cli/command"

func main() {
	command.Execute()
}
