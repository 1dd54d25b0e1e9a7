package wasmsrc

import (
	"bytes"
	"fmt"

	"github.com/go-interpreter/wagon/wasm"
)

// Load parses a WASM binary module and decodes it into this package's
// minimal model. Section parsing (types, imports, globals, exports, code)
// is handled entirely by wagon; this function adapts wagon's types into
// wasmsrc's and decodes every function body's bytecode into a flat
// instruction stream.
func Load(data []byte) (*Module, error) {
	m, err := wasm.ReadModule(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("wasmsrc: parsing module: %w", err)
	}

	if m.Memory != nil && len(m.Memory.Entries) > 1 {
		return nil, ErrMultipleMemories
	}

	entry, err := findEntry(m)
	if err != nil {
		return nil, err
	}

	funcs := make([]Fun, len(m.FunctionIndexSpace))
	for i, fn := range m.FunctionIndexSpace {
		f, err := convertFunc(fn)
		if err != nil {
			return nil, fmt.Errorf("wasmsrc: function %d: %w", i, err)
		}
		funcs[i] = f
	}

	globals := make([]Global, len(m.GlobalIndexSpace))
	for i, g := range m.GlobalIndexSpace {
		ty, err := convertValueType(g.Type.Type)
		if err != nil {
			return nil, fmt.Errorf("wasmsrc: global %d: %w", i, err)
		}
		globals[i] = Global{Idx: uint32(i), Ty: ty, Mutable: g.Type.Mutable}
	}

	return &Module{Funcs: funcs, Globals: globals, Entry: entry}, nil
}

// findEntry locates the module's sole function export.
func findEntry(m *wasm.Module) (int, error) {
	if m.Export == nil {
		return 0, ErrNoEntryExport
	}

	found := -1
	for _, e := range m.Export.Entries {
		if e.Kind != wasm.ExternalFunction {
			continue
		}
		if found != -1 {
			return 0, ErrMultipleEntryExports
		}
		found = int(e.Index)
	}

	if found == -1 {
		return 0, ErrNoEntryExport
	}
	return found, nil
}

func convertFunc(fn wasm.Function) (Fun, error) {
	params, err := convertValueTypes(fn.Sig.ParamTypes)
	if err != nil {
		return Fun{}, err
	}
	results, err := convertValueTypes(fn.Sig.ReturnTypes)
	if err != nil {
		return Fun{}, err
	}

	var locals []ValueType
	for _, entry := range fn.Body.Locals {
		ty, err := convertValueType(entry.Type)
		if err != nil {
			return Fun{}, err
		}
		for i := uint32(0); i < entry.Count; i++ {
			locals = append(locals, ty)
		}
	}

	body, err := decodeBody(fn.Body.Code)
	if err != nil {
		return Fun{}, err
	}

	return Fun{
		Sig:    FunctionSig{Params: params, Results: results},
		Locals: locals,
		Body:   body,
	}, nil
}

func convertValueTypes(in []wasm.ValueType) ([]ValueType, error) {
	out := make([]ValueType, len(in))
	for i, v := range in {
		ty, err := convertValueType(v)
		if err != nil {
			return nil, err
		}
		out[i] = ty
	}
	return out, nil
}

func convertValueType(v wasm.ValueType) (ValueType, error) {
	switch v {
	case wasm.ValueTypeI32:
		return I32, nil
	case wasm.ValueTypeI64:
		return I64, nil
	case wasm.ValueTypeF32:
		return F32, nil
	case wasm.ValueTypeF64:
		return F64, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedValueType, v)
	}
}
