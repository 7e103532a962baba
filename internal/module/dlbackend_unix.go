//go:build unix

package module

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/divvun/divvun-pipeline/internal/abi"
)

// cInterface is the C-layout twin of the PipelineInterface struct handed
// to a module at pipeline_init: three raw function pointers, in the
// order the module's header declares them.
type cInterface struct {
	allocFn           uintptr
	loadResourceFn    uintptr
	releaseResourceFn uintptr
}

func bytesPtr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func ptrToBytes(ptr, length uintptr) []byte {
	if ptr == 0 || length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(length))
}

func writeUintptr(dst uintptr, v uintptr) {
	if dst == 0 {
		return
	}
	*(*uintptr)(unsafe.Pointer(dst)) = v
}

// DLBackend loads modules as real shared libraries via dlopen, bridging
// the C ABI with purego — no cgo required. This is the production
// Backend; tests use an in-process fake instead, since no C toolchain is
// available to compile real .so files here.
type DLBackend struct{}

func (DLBackend) Open(path string) (Handle, error) {
	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen: %w", err)
	}

	h := &dlHandle{lib: lib}
	purego.RegisterLibFunc(&h.pipelineInit, lib, "pipeline_init")
	purego.RegisterLibFunc(&h.pipelineInfo, lib, "pipeline_info")
	purego.RegisterLibFunc(&h.pipelineRun, lib, "pipeline_run")
	return h, nil
}

// dlHandle is one dlopen'd module. The three callback uintptrs are kept
// alive for the handle's lifetime: purego.NewCallback allocates a
// long-lived trampoline, not a GC'd value, but the Go closures it wraps
// must stay reachable for as long as the module may call them.
type dlHandle struct {
	lib uintptr

	pipelineInit func(ifacePtr uintptr) int32
	pipelineInfo func(outPtrPtr, outLenPtr uintptr) int32
	pipelineRun  func(reqPtr, reqLen, outPtrPtr, outLenPtr, errPtrPtr, errLenPtr uintptr) int32

	allocCB, loadResourceCB, releaseResourceCB uintptr
}

func (h *dlHandle) Init(iface *abi.Interface) error {
	h.allocCB = purego.NewCallback(func(size uintptr) uintptr {
		return bytesPtr(iface.Alloc(int(size)))
	})
	h.loadResourceCB = purego.NewCallback(func(namePtr, nameLen, outLenPtr uintptr) uintptr {
		name := string(ptrToBytes(namePtr, nameLen))
		data, ok := iface.LoadResource(name)
		if !ok {
			writeUintptr(outLenPtr, 0)
			return 0
		}
		writeUintptr(outLenPtr, uintptr(len(data)))
		return bytesPtr(data)
	})
	h.releaseResourceCB = purego.NewCallback(func(namePtr, nameLen uintptr) uintptr {
		iface.ReleaseResource(string(ptrToBytes(namePtr, nameLen)))
		return 0
	})

	cIface := cInterface{
		allocFn:           h.allocCB,
		loadResourceFn:    h.loadResourceCB,
		releaseResourceFn: h.releaseResourceCB,
	}

	if rc := h.pipelineInit(uintptr(unsafe.Pointer(&cIface))); rc == 0 {
		return fmt.Errorf("pipeline_init returned %d", rc)
	}
	return nil
}

func (h *dlHandle) Info() (abi.ModuleMetadata, error) {
	var outPtr, outLen uintptr
	rc := h.pipelineInfo(uintptr(unsafe.Pointer(&outPtr)), uintptr(unsafe.Pointer(&outLen)))
	if rc == 0 {
		return abi.ModuleMetadata{}, fmt.Errorf("pipeline_info returned %d", rc)
	}
	return abi.DecodeMetadata(ptrToBytes(outPtr, outLen))
}

func (h *dlHandle) Run(params abi.RunParams) (abi.RunResult, error) {
	req, err := abi.EncodeRunParams(params)
	if err != nil {
		return abi.RunResult{}, fmt.Errorf("encode run params: %w", err)
	}

	var outPtr, outLen, errPtr, errLen uintptr
	rc := h.pipelineRun(
		bytesPtr(req), uintptr(len(req)),
		uintptr(unsafe.Pointer(&outPtr)), uintptr(unsafe.Pointer(&outLen)),
		uintptr(unsafe.Pointer(&errPtr)), uintptr(unsafe.Pointer(&errLen)),
	)

	if rc == 0 {
		rec, decErr := abi.DecodeError(ptrToBytes(errPtr, errLen))
		if decErr != nil {
			return abi.RunResult{}, fmt.Errorf("pipeline_run failed and its error payload did not decode: %w", decErr)
		}
		return abi.RunResult{}, rec
	}

	return abi.RunResult{Output: ptrToBytes(outPtr, outLen)}, nil
}

func (h *dlHandle) Close() error {
	return purego.Dlclose(h.lib)
}
