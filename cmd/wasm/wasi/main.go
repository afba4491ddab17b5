//go:build wasip1

// Command gobeat-wasm-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin → single JSON object on stdout.
//
//	stdin:  { "source": "<program>", "start": <int32>, "count": <int> }
//	stdout: { "samples": [<int32>, ...] }    on success
//	        { "error":   "<message>"     }    on failure (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o gobeat.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"source":"t*(t>>5|t>>8)","start":0,"count":16}' | wasmtime gobeat.wasm
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sandrolain/gobeat"
)

// maxCount bounds a single request.
const maxCount = 1 << 24

type request struct {
	Source string `json:"source"`
	Start  int32  `json:"start"`
	Count  int    `json:"count"`
}

type response struct {
	Samples []int32 `json:"samples,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// handle decodes one request from r and renders it.
func handle(r io.Reader) (response, int) {
	var req request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return response{Error: "invalid request JSON: " + err.Error()}, 1
	}
	if req.Count > maxCount {
		return response{Error: fmt.Sprintf("count must be at most %d", maxCount)}, 1
	}

	samples, err := gobeat.Render(req.Source, req.Start, req.Count)
	if err != nil {
		return response{Error: err.Error()}, 1
	}
	return response{Samples: samples}, 0
}

func main() {
	resp, code := handle(os.Stdin)
	_ = json.NewEncoder(os.Stdout).Encode(resp)
	os.Exit(code)
}
