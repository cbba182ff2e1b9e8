// Package hostsim drives a compiled engine WASM module through its exported
// ABI by function name, the way a real host embedding would, instead of
// calling the engine package's Go API in-process. Useful for exercising the
// wasmexports.go surface without a JS runtime in the loop.
package hostsim

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// Loader wraps one instantiated engine module and the memory/function
// handles needed to drive create_engine -> commit* -> finalize -> destroy
// from outside the module.
type Loader struct {
	instance *wasmer.Instance
	memory   *wasmer.Memory

	alloc       wasmer.NativeFunction
	dealloc     wasmer.NativeFunction
	createEng   wasmer.NativeFunction
	leftPtr     wasmer.NativeFunction
	rightPtr    wasmer.NativeFunction
	commitLeft  wasmer.NativeFunction
	commitRight wasmer.NativeFunction
	finalize    wasmer.NativeFunction
	resultLen   wasmer.NativeFunction
	lastErr     wasmer.NativeFunction
	lastErrLen  wasmer.NativeFunction
	destroy     wasmer.NativeFunction
}

// Load instantiates wasmBytes and resolves the exported functions the
// loader needs.
func Load(wasmBytes []byte) (*Loader, error) {
	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)

	module, err := wasmer.NewModule(store, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile module: %w", err)
	}

	instance, err := wasmer.NewInstance(module, wasmer.NewImportObject())
	if err != nil {
		return nil, fmt.Errorf("instantiate module: %w", err)
	}

	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}

	l := &Loader{instance: instance, memory: mem}
	exports := map[string]*wasmer.NativeFunction{
		"alloc":               &l.alloc,
		"dealloc":             &l.dealloc,
		"create_engine":       &l.createEng,
		"left_input_ptr":      &l.leftPtr,
		"right_input_ptr":     &l.rightPtr,
		"commit_left":         &l.commitLeft,
		"commit_right":        &l.commitRight,
		"finalize":            &l.finalize,
		"get_result_len":      &l.resultLen,
		"get_last_error":      &l.lastErr,
		"get_last_error_len":  &l.lastErrLen,
		"destroy":             &l.destroy,
	}
	for name, slot := range exports {
		fn, err := instance.Exports.GetFunction(name)
		if err != nil {
			return nil, fmt.Errorf("resolve export %q: %w", name, err)
		}
		*slot = fn
	}

	return l, nil
}

// CreateEngine writes cfg into the module's memory via alloc, then calls
// create_engine. Returns the opaque handle, or an error if create_engine
// signaled a config error by returning a null (zero) handle.
func (l *Loader) CreateEngine(cfg []byte) (uint32, error) {
	ptr, err := l.writeBytes(cfg)
	if err != nil {
		return 0, err
	}
	ret, err := l.createEng(ptr, uint32(len(cfg)))
	if err != nil {
		return 0, fmt.Errorf("create_engine call: %w", err)
	}
	handle, _ := ret.(int32)
	if handle == 0 {
		return 0, fmt.Errorf("create_engine rejected config")
	}
	return uint32(handle), nil
}

// CommitLeft stages data into the module's left input buffer and calls
// commit_left.
func (l *Loader) CommitLeft(handle uint32, data []byte) (uint8, error) {
	return l.commitSide(handle, data, l.leftPtr, l.commitLeft)
}

// CommitRight mirrors CommitLeft for the right side.
func (l *Loader) CommitRight(handle uint32, data []byte) (uint8, error) {
	return l.commitSide(handle, data, l.rightPtr, l.commitRight)
}

func (l *Loader) commitSide(handle uint32, data []byte, ptrFn, commitFn wasmer.NativeFunction) (uint8, error) {
	ptrRet, err := ptrFn(handle)
	if err != nil {
		return 0, fmt.Errorf("resolve staging ptr: %w", err)
	}
	ptr, _ := ptrRet.(int32)

	dst := l.memory.Data()[ptr : int(ptr)+len(data)]
	copy(dst, data)

	ret, err := commitFn(handle, uint32(len(data)))
	if err != nil {
		return 0, fmt.Errorf("commit call: %w", err)
	}
	status, _ := ret.(int32)
	return uint8(status), nil
}

// Finalize calls finalize and returns the sealed arena's bytes, read out of
// module memory at get_result_len.
func (l *Loader) Finalize(handle uint32) ([]byte, error) {
	ptrRet, err := l.finalize(handle)
	if err != nil {
		return nil, fmt.Errorf("finalize call: %w", err)
	}
	ptr, _ := ptrRet.(int32)
	if ptr == 0 {
		return nil, fmt.Errorf("finalize returned null")
	}

	lenRet, err := l.resultLen(handle)
	if err != nil {
		return nil, fmt.Errorf("get_result_len call: %w", err)
	}
	length, _ := lenRet.(int32)

	out := make([]byte, length)
	copy(out, l.memory.Data()[ptr:int(ptr)+int(length)])
	return out, nil
}

// LastError reads the module's last-error message for handle.
func (l *Loader) LastError(handle uint32) (string, error) {
	ptrRet, err := l.lastErr(handle)
	if err != nil {
		return "", fmt.Errorf("get_last_error call: %w", err)
	}
	lenRet, err := l.lastErrLen(handle)
	if err != nil {
		return "", fmt.Errorf("get_last_error_len call: %w", err)
	}
	ptr, _ := ptrRet.(int32)
	length, _ := lenRet.(int32)
	if ptr == 0 || length == 0 {
		return "", nil
	}
	return string(l.memory.Data()[ptr : int(ptr)+int(length)]), nil
}

// Destroy calls destroy for handle.
func (l *Loader) Destroy(handle uint32) error {
	_, err := l.destroy(handle)
	return err
}

func (l *Loader) writeBytes(data []byte) (uint32, error) {
	ret, err := l.alloc(uint32(len(data)))
	if err != nil {
		return 0, fmt.Errorf("alloc call: %w", err)
	}
	ptr, _ := ret.(int32)
	dst := l.memory.Data()[ptr : int(ptr)+len(data)]
	copy(dst, data)
	return uint32(ptr), nil
}
