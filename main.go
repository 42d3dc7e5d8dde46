package main

import "github.com/chebykinn/browser-code/cmd"

func main() {
	cmd.Execute()
}
