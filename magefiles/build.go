//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const (
	binDir  = "bin"
	webDir  = "web"
	wasmOut = "ember.wasm"
)

// Builds the desktop demo into bin/.
func (Build) Desktop() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "-o", filepath.Join(binDir, "ember"), "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Builds the demo for the browser (WebGL2) into web/ together with the Go wasm loader.
func (Build) Wasm() error {
	if err := os.MkdirAll(webDir, 0o755); err != nil {
		return err
	}
	if _, err := executeCmd("go",
		withArgs("build", "-o", filepath.Join(webDir, wasmOut), "."),
		withEnv("GOOS=js", "GOARCH=wasm"),
		withStream()); err != nil {
		return err
	}

	goroot, err := executeCmd("go", withArgs("env", "GOROOT"))
	if err != nil {
		return err
	}
	loader, err := findWasmExec(strings.TrimSpace(goroot))
	if err != nil {
		return err
	}
	data, err := os.ReadFile(loader)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(webDir, "wasm_exec.js"), data, 0o644)
}

// findWasmExec locates wasm_exec.js, which moved from misc/ to lib/ in Go 1.24.
func findWasmExec(goroot string) (string, error) {
	for _, dir := range []string{"lib/wasm", "misc/wasm"} {
		p := filepath.Join(goroot, dir, "wasm_exec.js")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("wasm_exec.js not found under %s", goroot)
}
