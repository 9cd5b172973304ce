package main

import "kassa/cmd/terminal/cmd"

func main() {
	cmd.Execute()
}
