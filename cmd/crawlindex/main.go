// Command crawlindex is the CLI entry point for the crawler and the
// disk-resident search index built from its output: see the crawl,
// build-runs, parallel-merge, finalize, and search subcommands.
package main

import (
	cmd "github.com/rohmanhakim/crawlindex/internal/cli"
)

func main() {
	cmd.Execute()
}
