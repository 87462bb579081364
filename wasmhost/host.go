package wasmhost

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	comruntime "github.com/wippyai/com-runtime"
	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/resource"
)

// DefaultModuleName is the import module guests use for the host functions.
const DefaultModuleName = "com"

// Exported function names.
const (
	FuncQueryInterface = "query_interface"
	FuncAddRef         = "add_ref"
	FuncRelease        = "release"
)

// Config configures a Host.
type Config struct {
	// ModuleName is the host module name. Empty means DefaultModuleName.
	ModuleName string
}

// DefaultConfig returns the default host configuration.
func DefaultConfig() Config {
	return Config{ModuleName: DefaultModuleName}
}

// Host owns the handle table shared by one or more guest instances.
type Host struct {
	table  *resource.Table
	module api.Module
	name   string
	mu     sync.Mutex
	closed bool
}

// New creates a host with an empty handle table.
func New(cfg Config) *Host {
	name := cfg.ModuleName
	if name == "" {
		name = DefaultModuleName
	}
	return &Host{
		table: resource.NewTable(),
		name:  name,
	}
}

// Table returns the host's handle table.
func (h *Host) Table() *resource.Table {
	return h.table
}

// ModuleName returns the name the host module is registered under.
func (h *Host) ModuleName() string {
	return h.name
}

// Instantiate registers the host module in rt. It may be called once.
func (h *Host) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, resource.ErrClosed
	}
	if h.module != nil {
		return nil, errors.Duplicate(errors.PhaseHost, nil, "host module", h.name)
	}

	i32 := api.ValueTypeI32
	i64 := api.ValueTypeI64

	builder := rt.NewHostModuleBuilder(h.name)
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.queryInterface), []api.ValueType{i32, i64, i64}, []api.ValueType{i32}).
		WithParameterNames("handle", "iid_lo", "iid_hi").
		Export(FuncQueryInterface)
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.addRef), []api.ValueType{i32}, []api.ValueType{i32}).
		WithParameterNames("handle").
		Export(FuncAddRef)
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.release), []api.ValueType{i32}, []api.ValueType{i32}).
		WithParameterNames("handle").
		Export(FuncRelease)

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "instantiate host module "+h.name)
	}
	h.module = mod

	Logger().Debug("host module instantiated", zap.String("module", h.name))
	return mod, nil
}

// Export moves ownership of p into the host and returns the guest handle.
func Export[I comruntime.Interface](h *Host, p *comruntime.Ptr[I]) (resource.Handle, error) {
	handle, err := resource.Insert(h.table, p)
	if err != nil {
		return 0, err
	}
	Logger().Debug("exported",
		zap.Uint32("handle", uint32(handle)),
		zap.Stringer("iid", comruntime.IIDOf[I]()))
	return handle, nil
}

// Borrow returns the object behind a guest handle without changing its
// count. The Ref is valid until the guest releases the handle.
func (h *Host) Borrow(handle resource.Handle) (comruntime.Ref[comruntime.IUnknown], bool) {
	return resource.Lookup[comruntime.IUnknown](h.table, handle)
}

// Close closes the host module and releases every object still held by
// guests.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	mod := h.module
	h.module = nil
	h.closed = true
	h.mu.Unlock()

	var err error
	if mod != nil {
		err = mod.Close(ctx)
	}
	if cerr := h.table.Close(); err == nil {
		err = cerr
	}
	return err
}

func (h *Host) queryInterface(_ context.Context, _ api.Module, stack []uint64) {
	handle := resource.Handle(api.DecodeU32(stack[0]))
	iid := comruntime.GUIDFromHalves(stack[1], stack[2])
	stack[0] = api.EncodeU32(uint32(h.query(handle, iid)))
}

func (h *Host) query(handle resource.Handle, iid comruntime.GUID) resource.Handle {
	e, ok := h.table.Get(handle)
	if !ok {
		Logger().Debug("query_interface on invalid handle", zap.Uint32("handle", uint32(handle)))
		return 0
	}
	obj, ok := e.Object.QueryInterface(iid)
	if !ok {
		Logger().Debug("interface not supported",
			zap.Uint32("handle", uint32(handle)),
			zap.Stringer("iid", iid))
		return 0
	}
	out, err := h.table.InsertRaw(iid, obj)
	if err != nil {
		(*comruntime.IUnknown)(obj).Release()
		Logger().Warn("query_interface result dropped", zap.Error(err))
		return 0
	}
	return out
}

func (h *Host) addRef(_ context.Context, _ api.Module, stack []uint64) {
	handle := resource.Handle(api.DecodeU32(stack[0]))
	out, err := h.table.Clone(handle)
	if err != nil {
		Logger().Debug("add_ref failed", zap.Uint32("handle", uint32(handle)), zap.Error(err))
		out = 0
	}
	stack[0] = api.EncodeU32(uint32(out))
}

func (h *Host) release(_ context.Context, _ api.Module, stack []uint64) {
	handle := resource.Handle(api.DecodeU32(stack[0]))
	n, err := h.table.Drop(handle)
	if err != nil {
		Logger().Debug("release failed", zap.Uint32("handle", uint32(handle)), zap.Error(err))
		stack[0] = api.EncodeI32(-1)
		return
	}
	stack[0] = api.EncodeI32(int32(n))
}
