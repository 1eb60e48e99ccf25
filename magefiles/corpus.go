//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const bin = "bin/srchive"

// Ingest runs one corpus refresh with the built binary.
func Ingest() error {
	mg.Deps(Build, Init)
	return sh.RunV(bin, "ingest")
}

// Retain enforces the corpus cap.
func Retain() error {
	mg.Deps(Build)
	return sh.RunV(bin, "retain")
}

// Repair reconciles the vector index with the metadata store.
func Repair() error {
	mg.Deps(Build)
	return sh.RunV(bin, "repair")
}

// Stats prints corpus counts.
func Stats() error {
	mg.Deps(Build)
	return sh.RunV(bin, "stats")
}

// Serve starts the search API.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(bin, "serve")
}
