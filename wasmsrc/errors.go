package wasmsrc

import "errors"

// ErrNoEntryExport is returned when a module exports no function: Compile
// has no kernel to translate.
var ErrNoEntryExport = errors.New("wasmsrc: module exports no function")

// ErrMultipleEntryExports is returned when a module exports more than one
// function. This system compiles exactly one compute kernel per module.
var ErrMultipleEntryExports = errors.New("wasmsrc: module exports more than one function")

// ErrMultipleMemories is returned for a module declaring more than one
// linear memory; WASM 1.0 itself disallows this, but wagon does not enforce
// it for every malformed input, so it is checked again here.
var ErrMultipleMemories = errors.New("wasmsrc: module declares more than one memory")

// ErrUnsupportedValueType is returned for a WASM value type this system has
// no ValueType mapping for (only i32, i64, f32, f64 are recognised).
var ErrUnsupportedValueType = errors.New("wasmsrc: unsupported value type")
