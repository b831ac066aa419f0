//go:build js && wasm

package host

import (
	"strings"
	"syscall/js"
)

// Register publishes the entry points as global JavaScript functions:
//
//	csvtojson(text: string): string | Error
//	csvtojson_binary(data: Uint8Array): string | Error
//
// A failure is returned (not thrown) as a JavaScript Error whose message
// carries the routing hint.
func (a *Adapter) Register() {
	global := js.Global()
	global.Set(TextEntry, js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) < 1 || args[0].Type() != js.TypeString {
			return jsError(TextEntry + ": expected a string argument")
		}
		out, err := a.Text(args[0].String())
		if err != nil {
			return jsError(err.Error())
		}
		return out
	}))
	global.Set(BinaryEntry, js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) < 1 || !args[0].InstanceOf(global.Get("Uint8Array")) {
			return jsError(BinaryEntry + ": expected a Uint8Array argument")
		}
		buf := make([]byte, args[0].Get("length").Int())
		js.CopyBytesToGo(buf, args[0])
		out, err := a.Binary(buf)
		if err != nil {
			return jsError(err.Error())
		}
		return out
	}))
}

func jsError(msg string) js.Value {
	return js.Global().Get("Error").New(msg)
}

// ConsoleWriter sends each log line to the browser console. Lines at ERROR
// level go to console.error, everything else to console.info.
type ConsoleWriter struct{}

func (ConsoleWriter) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	method := "info"
	if strings.Contains(line, "level=ERROR") || strings.Contains(line, `"level":"ERROR"`) {
		method = "error"
	}
	js.Global().Get("console").Call(method, line)
	return len(p), nil
}
