//go:build !(js && wasm) && !wasip1

package store

import _ "modernc.org/sqlite"

const driverName = "sqlite"
