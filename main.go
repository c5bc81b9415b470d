// ABOUTME: Entry point for the record-admin CLI
// ABOUTME: Terminal client and dev server for the record-admin backend

package main

import (
	"fmt"
	"os"

	"github.com/markalston/record-admin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
