// Command panelctl is the operator CLI of the commission panel: it enqueues
// background jobs, inspects the queue, invalidates caches and exports seller
// summaries.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
