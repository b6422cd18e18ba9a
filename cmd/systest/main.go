// Package main provides the entry point for the systest CLI.
package main

import (
	"os"

	"yqhp/systest/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
