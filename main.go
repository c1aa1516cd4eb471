// Package main is the entry point for the crosswalk standards engine.
package main

import "crosswalk/cmd"

func main() {
	cmd.Execute()
}
