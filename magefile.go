//go:build mage
// +build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified
var Default = Build

// Build compiles the rhessibproj executable into ./bin
func Build() error {
	mg.Deps(Vet)
	fmt.Println("Building rhessibproj executable...")
	return sh.RunV("go", "build", "-o", "./bin/rhessibproj", "./cmd/rhessibproj")
}

// Vet runs go vet on all packages
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Test runs the unit tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// TestShort runs the unit tests, skipping slow ones
func TestShort() error {
	return sh.RunV("go", "test", "-short", "./...")
}
