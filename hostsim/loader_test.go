package hostsim

// Exercising Load against a real compiled engine.wasm binary requires a
// wasip1 build artifact on disk, which this module does not ship (the
// engine package's wasmexports.go is wasip1-only and built out-of-band).
// Loader's ABI-marshalling helpers (writeBytes, commitSide) have no tests;
// the engine package tests drive the same lifecycle through its Go API,
// not through this loader.
