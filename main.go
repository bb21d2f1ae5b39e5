// The main package for the pagequery executable.
package main

import (
	"github.com/JakeFAU/pagequery/cmd"
)

func main() {
	cmd.Execute()
}
