//go:build wasip1

// This file is the WASI reactor ABI surface: a handle-based export table a
// host can call by name. Go 1.24's go:wasmexport gives a direct C-style
// export without any JS glue, straight off the wasip1 build.
package engine

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/nmxmxh/siliconpath/engineconfig"
	"github.com/nmxmxh/siliconpath/enginestatus"
)

var (
	registryMu sync.Mutex
	registry   = map[uint32]*Engine{}
	nextHandle uint32 = 1

	allocMu sync.Mutex
	allocs  = map[uint32][]byte{}
	pinner  runtime.Pinner
)

func bytesAt(ptr, length uint32) []byte {
	if length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
}

func ptrOf(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	return uint32(uintptr(unsafe.Pointer(&b[0])))
}

func lookup(handle uint32) *Engine {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[handle]
}

//go:wasmexport alloc
func wasmAlloc(length uint32) uint32 {
	buf := make([]byte, length)
	allocMu.Lock()
	defer allocMu.Unlock()
	if length > 0 {
		pinner.Pin(&buf[0])
	}
	ptr := ptrOf(buf)
	allocs[ptr] = buf
	return ptr
}

//go:wasmexport dealloc
func wasmDealloc(ptr, length uint32) {
	allocMu.Lock()
	defer allocMu.Unlock()
	delete(allocs, ptr)
}

//go:wasmexport create_engine
func wasmCreateEngine(cfgPtr, cfgLen uint32) uint32 {
	cfg, err := engineconfig.FromBytes(bytesAt(cfgPtr, cfgLen))
	if err != nil {
		return 0
	}

	e, err := New(cfg)
	if err != nil {
		return 0
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	handle := nextHandle
	nextHandle++
	registry[handle] = e
	return handle
}

//go:wasmexport left_input_ptr
func wasmLeftInputPtr(handle uint32) uint32 {
	e := lookup(handle)
	if e == nil {
		return 0
	}
	return ptrOf(e.LeftBuffer())
}

//go:wasmexport right_input_ptr
func wasmRightInputPtr(handle uint32) uint32 {
	e := lookup(handle)
	if e == nil {
		return 0
	}
	return ptrOf(e.RightBuffer())
}

//go:wasmexport commit_left
func wasmCommitLeft(handle, length uint32) uint8 {
	e := lookup(handle)
	if e == nil {
		return uint8(enginestatus.InvalidHandle)
	}
	return uint8(e.CommitLeft(length))
}

//go:wasmexport commit_right
func wasmCommitRight(handle, length uint32) uint8 {
	e := lookup(handle)
	if e == nil {
		return uint8(enginestatus.InvalidHandle)
	}
	return uint8(e.CommitRight(length))
}

//go:wasmexport finalize
func wasmFinalize(handle uint32) uint32 {
	e := lookup(handle)
	if e == nil {
		return 0
	}
	a, status := e.Finalize()
	if status == enginestatus.Error {
		return 0
	}
	return ptrOf(a.Bytes())
}

//go:wasmexport get_result_len
func wasmGetResultLen(handle uint32) uint32 {
	e := lookup(handle)
	if e == nil {
		return 0
	}
	return e.ResultLen()
}

//go:wasmexport get_last_error
func wasmGetLastError(handle uint32) uint32 {
	e := lookup(handle)
	if e == nil {
		return 0
	}
	b, _ := e.LastError()
	return ptrOf(b)
}

//go:wasmexport get_last_error_len
func wasmGetLastErrorLen(handle uint32) uint32 {
	e := lookup(handle)
	if e == nil {
		return 0
	}
	_, n := e.LastError()
	return n
}

//go:wasmexport destroy
func wasmDestroy(handle uint32) uint8 {
	registryMu.Lock()
	e, ok := registry[handle]
	if ok {
		delete(registry, handle)
	}
	registryMu.Unlock()

	if !ok {
		return uint8(enginestatus.Ok)
	}
	return uint8(e.Destroy())
}
