// The main package for the mvnmirror executable.
package main

import (
	"github.com/JakeFAU/maven-tree-mirror/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
