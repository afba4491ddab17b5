//go:build js && wasm

// Command gobeat-wasm-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `gobeat` object with the following API:
//
//	gobeat.version()                    → string
//	gobeat.render(source, start, count) → Int32Array, or an Error on failure
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o gobeat.wasm ./cmd/wasm/js/
//
// Usage in browser:
//
//	<script src="wasm_exec.js"></script>
//	<script>
//	  const go = new Go()
//	  WebAssembly.instantiateStreaming(fetch('gobeat.wasm'), go.importObject)
//	    .then(r => {
//	      go.run(r.instance)
//	      const samples = gobeat.render('t*(t>>5|t>>8)', 0, 8000)
//	      if (samples instanceof Error) throw samples
//	    })
//	</script>
package main

import (
	"encoding/binary"
	"fmt"
	"syscall/js"

	"github.com/sandrolain/gobeat"
)

// maxCount bounds a single render call.
const maxCount = 1 << 24

// jsError builds a JS Error. Panicking inside a js.Func would stop the Go
// program, so failures are returned instead of thrown.
func jsError(msg string) js.Value {
	return js.Global().Get("Error").New(msg)
}

// jsRender implements gobeat.render(source, start, count) → Int32Array.
func jsRender(_ js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return jsError("gobeat.render requires 3 arguments: source (string), start (number) and count (number)")
	}
	source := args[0].String()
	start := int32(args[1].Int())
	count := args[2].Int()
	if count < 0 || count > maxCount {
		return jsError(fmt.Sprintf("gobeat.render: count must be between 0 and %d", maxCount))
	}

	samples, err := gobeat.Render(source, start, count)
	if err != nil {
		return jsError(fmt.Sprintf("gobeat.render: %v", err))
	}

	raw := make([]byte, 0, 4*len(samples))
	for _, v := range samples {
		raw = binary.LittleEndian.AppendUint32(raw, uint32(v))
	}
	u8 := js.Global().Get("Uint8Array").New(len(raw))
	js.CopyBytesToJS(u8, raw)
	return js.Global().Get("Int32Array").New(u8.Get("buffer"))
}

func main() {
	api := map[string]interface{}{
		"render": js.FuncOf(jsRender),
		"version": js.FuncOf(func(_ js.Value, _ []js.Value) interface{} {
			return gobeat.Version()
		}),
	}
	js.Global().Set("gobeat", js.ValueOf(api))

	// Block forever: the JS event loop owns execution from here.
	select {}
}
