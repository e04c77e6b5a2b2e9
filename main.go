// The main package for the ccnews executable.
package main

import "github.com/JakeFAU/ccnews-ingest/cmd"

func main() {
	cmd.Execute()
}
