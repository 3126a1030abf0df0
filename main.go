package main

import "github.com/therandomchoice/ponzi-cli/cmd"

func main() {
	cmd.Execute()
}
