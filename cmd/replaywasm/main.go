//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"
)

func main() {
	js.Global().Set("__replayInit", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return mustJSON(failure(-1, "invalid_request", "missing request payload"))
		}
		return mustJSON(handleInit(args[0].String()))
	}))
	js.Global().Set("__replayStep", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 2 {
			return mustJSON(failure(-1, "invalid_request", "expected tape and step"))
		}
		return mustJSON(handleStep(args[0].String(), args[1].Int()))
	}))

	select {}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b2, _ := json.Marshal(failure(-1, "marshal_failed", err.Error()))
		return string(b2)
	}
	return string(b)
}
