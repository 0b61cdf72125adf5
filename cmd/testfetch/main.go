// Manual harness: fetch a URL once and report what the monitor would see.
//
// Usage: go run ./cmd/testfetch https://example.com
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mkessler/sitepulse/internal/fetch"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: testfetch <url>")
		os.Exit(2)
	}
	url := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	f := fetch.NewHTTPFetcher(fetch.DefaultTimeout)
	start := time.Now()
	body, err := f.Fetch(ctx, url)
	if err != nil {
		var fe *fetch.Error
		if errors.As(err, &fe) && fe.Status != 0 {
			fmt.Printf("unusable: status %d (cycle would be skipped)\n", fe.Status)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("ok: %d bytes in %s\n", len(body), time.Since(start).Round(time.Millisecond))
}
