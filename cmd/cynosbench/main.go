// Command cynosbench is a small CLI harness for exercising a cynos
// engine.Database: it builds a fixed demo schema, drives insert/query
// workloads against it, and prints explain dumps and materialized view
// results. There is no SQL parser (spec §1 Non-goals), so every
// subcommand builds its logical plan programmatically against a schema
// the command itself defines, the way the original's own bench harness
// (crates/database's test fixtures) does rather than accepting query
// text on the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
