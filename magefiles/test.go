//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package test with the race detector.
func (Test) All() error {
	if _, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Vets the wasm build, which the desktop test run does not compile.
func (Test) Wasm() error {
	if _, err := executeCmd("go", withArgs("vet", "./..."), withEnv("GOOS=js", "GOARCH=wasm"), withStream()); err != nil {
		return err
	}
	return nil
}
