package main

import "github.com/papapumpkin/slitforge/cmd"

func main() {
	cmd.Execute()
}
