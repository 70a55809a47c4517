package main

import (
	"testing"
)

// TestRootCommands tests that the root command registers its subcommands in
// order.
func TestRootCommands(t *testing.T) {
	commands := rootCommand.Commands()
	var names []string
	for _, command := range commands {
		names = append(names, command.Name())
	}
	if len(names) < 2 || names[0] != "watch" || names[1] != "version" {
		t.Error("unexpected root subcommands:", names)
	}
}
