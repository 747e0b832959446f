// The main package for the tgbotstore executable.
package main

import (
	"github.com/blinovmaxim/TgBotStore/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
