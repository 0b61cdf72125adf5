// Manual harness: diff two files and print the rendered report or the raw
// segments.
//
// Usage: go run ./cmd/testdiff [-lines] [-html] old.txt new.txt
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mkessler/sitepulse/internal/diff"
	"github.com/mkessler/sitepulse/internal/report"
)

func main() {
	lines := flag.Bool("lines", false, "compare line by line instead of character by character")
	html := flag.Bool("html", false, "print the rendered HTML report instead of raw segments")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: testdiff [-lines] [-html] old.txt new.txt")
		os.Exit(2)
	}

	old, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	new, err := os.ReadFile(flag.Arg(1))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	granularity := diff.Chars
	if *lines {
		granularity = diff.Lines
	}

	segs := diff.Compute(string(old), string(new), granularity)

	if *html {
		r := report.Renderer{}
		fmt.Print(r.Render(segs, flag.Arg(1), ""))
		return
	}

	for _, seg := range segs {
		fmt.Printf("[%s] %q\n", seg.Kind, seg.Text)
	}
	fmt.Printf("\nsignificant (no ignore list): %v\n", diff.Significant(segs, nil))
}
