//go:build !(js && wasm)

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "replaywasm only runs as GOOS=js GOARCH=wasm")
	os.Exit(1)
}
