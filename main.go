// Package main is the entry point for the testsynth CLI.
package main

import "gooze.dev/pkg/testsynth/cmd"

func main() {
	cmd.Execute()
}
