// resolve-mirror resolves a vendor mirror page to the current base URL.
// Useful from cron to pin feed.base_url when running without Chrome on the
// main host.
//
// Usage: resolve-mirror <mirror-url> [timeout]
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Melekhin/betdesk/internal/feed"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: resolve-mirror <mirror-url> [timeout]")
		os.Exit(2)
	}
	mirrorURL := os.Args[1]

	timeout := 60 * time.Second
	if len(os.Args) > 2 {
		d, err := time.ParseDuration(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid timeout %q: %v\n", os.Args[2], err)
			os.Exit(2)
		}
		timeout = d
	}

	base, err := feed.ResolveMirrorToBaseURL(mirrorURL, timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(base)
}
