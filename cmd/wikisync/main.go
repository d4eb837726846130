// wikisync CLI entry point
//
// wikisync mirrors a directory of text and markdown files into an esa.io
// wiki, pacing its requests to the API rate limit.
package main

import "github.com/jbctechsolutions/wikisync/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
