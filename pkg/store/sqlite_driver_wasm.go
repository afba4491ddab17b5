//go:build (js && wasm) || wasip1

package store

// No SQLite driver is linked into WebAssembly builds; NewSQLite fails with
// database/sql's unknown driver error and callers fall back to Memory.
const driverName = "sqlite"
