package main

import "github.com/tanq16/castrelay/cmd"

func main() {
	cmd.Execute()
}
