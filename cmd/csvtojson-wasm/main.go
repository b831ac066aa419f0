//go:build js && wasm

// Command csvtojson-wasm is the browser build of the converter.
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o csvtojson.wasm ./cmd/csvtojson-wasm
//
// Load it with wasm_exec.js; once started it exposes the global functions
// csvtojson(string) and csvtojson_binary(Uint8Array).
package main

import (
	"csvtojson/internal/converter"
	"csvtojson/internal/host"
	"csvtojson/internal/logging"
)

func main() {
	log := logging.New(host.ConsoleWriter{}, "info", "text")

	a := host.New(converter.New(converter.Options{}), host.WithLogger(log))
	a.Register()
	a.Start()

	// Keep the Go runtime alive so the registered callbacks stay valid.
	select {}
}
