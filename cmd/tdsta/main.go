// Command tdsta is the entry point for the TDS Virtual TA. It builds the
// search collection from the course pages and forum export, and answers
// student questions over HTTP or from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/Tejaswini050302/TDS-Project-1/cmd/tdsta/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
