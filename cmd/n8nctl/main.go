// Command n8nctl manages workflows on an n8n instance through its REST API
// and triggers them through their production webhooks.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
