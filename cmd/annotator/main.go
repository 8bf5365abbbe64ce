/**
 * Region annotator - Main Entry Point
 *
 * Command line front end for the region annotator. Every command builds one store
 * connection from configuration, runs a syncer around the shared session document for
 * as long as the command needs it, and stops the syncer's subscription before exiting.
 */

package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
)

const version = "0.1.0"

func main() {
	root := NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
