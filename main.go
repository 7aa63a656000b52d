package main

import (
	"fmt"
	"os"

	"bereal_explorer/internal/commands"
	"bereal_explorer/internal/extract"
)

func main() {
	if err := commands.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, extract.FriendlyMessage(err))
		os.Exit(1)
	}
}
