package main

import "github.com/derickschaefer/undertow/cmd"

func main() {
	cmd.Execute()
}
