// Package main is the entry point of the typedmem command.
package main

import "go.k6.io/typedmem/cmd"

func main() {
	cmd.Execute()
}
