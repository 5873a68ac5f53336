package main

import (
	"fmt"
	"os"

	"github.com/thiagokokada/doublegit-go/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "doublegit: %v\n", err)
		os.Exit(1)
	}
}
