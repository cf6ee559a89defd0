package main

import "github.com/relloyd/visitload/cmd"

func main() {
	cmd.Execute()
}
