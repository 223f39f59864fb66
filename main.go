package main

import "github.com/mfjones/chatter/cmd"

func main() {
	cmd.Execute()
}
