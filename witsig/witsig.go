// Package witsig gives core module exports typed signatures written in WIT
// syntax, so that command line arguments can be converted to and from the
// raw uint64 values wazero passes across the boundary.
//
// Only WIT types that lower to a single core value are supported: bool,
// char, the integer types and the float types.
package witsig

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/errors"
)

// Param is a named parameter.
type Param struct {
	Name string
	Type wit.Type
}

// Signature is the typed view of one exported function.
type Signature struct {
	Name    string
	Params  []Param
	Results []wit.Type
}

func (s *Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.Name + ": " + TypeString(p.Type)
	}
	out := s.Name + ": func(" + strings.Join(params, ", ") + ")"
	switch len(s.Results) {
	case 0:
	case 1:
		out += " -> " + TypeString(s.Results[0])
	default:
		results := make([]string, len(s.Results))
		for i, r := range s.Results {
			results[i] = TypeString(r)
		}
		out += " -> (" + strings.Join(results, ", ") + ")"
	}
	return out
}

var funcPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;\n]+))?`)

// Parse extracts function signatures from WIT text.
// Pattern: [export] name: func(params) -> result;
func Parse(text string) (map[string]*Signature, error) {
	sigs := make(map[string]*Signature)

	for _, match := range funcPattern.FindAllStringSubmatch(text, -1) {
		sig := &Signature{Name: match[1]}

		if params := strings.TrimSpace(match[2]); params != "" {
			for i, p := range splitParams(params) {
				name := fmt.Sprintf("p%d", i)
				typStr := p
				if idx := strings.LastIndex(p, ":"); idx != -1 {
					name = strings.TrimSpace(p[:idx])
					typStr = strings.TrimSpace(p[idx+1:])
				}
				t, err := parseType(typStr)
				if err != nil {
					return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse param type "+typStr)
				}
				sig.Params = append(sig.Params, Param{Name: name, Type: t})
			}
		}

		result := strings.TrimSuffix(strings.TrimSpace(match[3]), ";")
		result = strings.TrimSpace(result)
		if result != "" && result != "()" {
			parts := []string{result}
			if strings.HasPrefix(result, "(") && strings.HasSuffix(result, ")") {
				parts = splitParams(result[1 : len(result)-1])
			}
			for _, part := range parts {
				t, err := parseType(part)
				if err != nil {
					return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse result type "+part)
				}
				sig.Results = append(sig.Results, t)
			}
		}

		sigs[sig.Name] = sig
	}

	if len(sigs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no functions found in WIT text")
	}
	return sigs, nil
}

// splitParams splits parameter list, handling nested parens.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
			current.WriteRune(ch)
		case ')', '>':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}
	return result
}

func parseType(s string) (wit.Type, error) {
	t, err := wit.ParseType(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if _, ok := CoreType(t); !ok {
		return nil, errors.InvalidInput(errors.PhaseParse,
			fmt.Sprintf("type %s does not lower to a single core value", TypeString(t)))
	}
	return t, nil
}

// FromExport derives a signature from a core function export: i32 maps to
// s32, i64 to s64 and floats to themselves.
func FromExport(e engine.Export) (*Signature, error) {
	if e.Kind != api.ExternTypeFunc {
		return nil, errors.InvalidInput(errors.PhaseParse, e.Name+" is not a function")
	}
	sig := &Signature{Name: e.Name}
	for i, vt := range e.Params {
		t, err := fromCore(vt)
		if err != nil {
			return nil, err
		}
		sig.Params = append(sig.Params, Param{Name: fmt.Sprintf("p%d", i), Type: t})
	}
	for _, vt := range e.Results {
		t, err := fromCore(vt)
		if err != nil {
			return nil, err
		}
		sig.Results = append(sig.Results, t)
	}
	return sig, nil
}

func fromCore(vt api.ValueType) (wit.Type, error) {
	switch vt {
	case api.ValueTypeI32:
		return wit.S32{}, nil
	case api.ValueTypeI64:
		return wit.S64{}, nil
	case api.ValueTypeF32:
		return wit.F32{}, nil
	case api.ValueTypeF64:
		return wit.F64{}, nil
	default:
		return nil, errors.New(errors.PhaseParse, errors.KindTypeMismatch).
			Detail("no WIT type for core type %s", api.ValueTypeName(vt)).
			Build()
	}
}

// Check reports whether the signature lowers to the core signature of e.
func (s *Signature) Check(e engine.Export) error {
	mismatch := func(what string) error {
		return errors.New(errors.PhaseParse, errors.KindTypeMismatch).
			Value(e.Name).
			Detail("%s does not match %s: %s", s, e, what).
			Build()
	}
	if e.Kind != api.ExternTypeFunc {
		return mismatch("not a function")
	}
	if len(s.Params) != len(e.Params) {
		return mismatch("param count")
	}
	for i, p := range s.Params {
		if vt, _ := CoreType(p.Type); vt != e.Params[i] {
			return mismatch("param " + p.Name)
		}
	}
	if len(s.Results) != len(e.Results) {
		return mismatch("result count")
	}
	for i, r := range s.Results {
		if vt, _ := CoreType(r); vt != e.Results[i] {
			return mismatch(fmt.Sprintf("result %d", i))
		}
	}
	return nil
}

// CoreType returns the core value type t lowers to.
func CoreType(t wit.Type) (api.ValueType, bool) {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return api.ValueTypeI32, true
	case wit.U64, wit.S64:
		return api.ValueTypeI64, true
	case wit.F32:
		return api.ValueTypeF32, true
	case wit.F64:
		return api.ValueTypeF64, true
	default:
		return 0, false
	}
}

// EncodeArgs converts textual arguments to raw call parameters.
func (s *Signature) EncodeArgs(args []string) ([]uint64, error) {
	if len(args) != len(s.Params) {
		return nil, errors.InvalidInput(errors.PhaseParse,
			fmt.Sprintf("%s takes %d arguments, got %d", s.Name, len(s.Params), len(args)))
	}
	out := make([]uint64, len(args))
	for i, arg := range args {
		v, err := Encode(arg, s.Params[i].Type)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidInput, err, "argument "+s.Params[i].Name)
		}
		out[i] = v
	}
	return out, nil
}

// DecodeResults converts raw call results to Go values.
func (s *Signature) DecodeResults(vals []uint64) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		if i < len(s.Results) {
			out[i] = Decode(v, s.Results[i])
		} else {
			out[i] = v
		}
	}
	return out
}

// Encode converts value to the raw representation of t.
func Encode(value string, t wit.Type) (uint64, error) {
	if _, ok := CoreType(t); !ok {
		return 0, errors.InvalidInput(errors.PhaseParse, "unsupported type "+TypeString(t))
	}
	v, err := encode(strings.TrimSpace(value), t)
	if err != nil {
		return 0, errors.ParseFailed(fmt.Sprintf("%s value %q", TypeString(t), value), err)
	}
	return v, nil
}

func encode(value string, t wit.Type) (uint64, error) {
	switch t.(type) {
	case wit.Bool:
		switch value {
		case "true", "1":
			return 1, nil
		case "false", "0":
			return 0, nil
		}
		return 0, strconv.ErrSyntax
	case wit.Char:
		r := []rune(value)
		if len(r) != 1 {
			return 0, strconv.ErrSyntax
		}
		return uint64(r[0]), nil
	case wit.U8:
		return parseUint(value, 8)
	case wit.U16:
		return parseUint(value, 16)
	case wit.U32:
		return parseUint(value, 32)
	case wit.U64:
		return parseUint(value, 64)
	case wit.S8:
		return parseInt32(value, 8)
	case wit.S16:
		return parseInt32(value, 16)
	case wit.S32:
		return parseInt32(value, 32)
	case wit.S64:
		v, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			return 0, err
		}
		return api.EncodeI64(v), nil
	case wit.F32:
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return 0, err
		}
		return api.EncodeF32(float32(v)), nil
	case wit.F64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, err
		}
		return api.EncodeF64(v), nil
	default:
		return 0, errors.InvalidInput(errors.PhaseParse, "unsupported type "+TypeString(t))
	}
}

func parseUint(value string, bits int) (uint64, error) {
	return strconv.ParseUint(value, 0, bits)
}

func parseInt32(value string, bits int) (uint64, error) {
	v, err := strconv.ParseInt(value, 0, bits)
	if err != nil {
		return 0, err
	}
	return api.EncodeI32(int32(v)), nil
}

// Decode converts a raw value of type t to a Go value.
func Decode(v uint64, t wit.Type) any {
	switch t.(type) {
	case wit.Bool:
		return uint32(v) != 0
	case wit.Char:
		return string(rune(uint32(v)))
	case wit.U8:
		return uint8(v)
	case wit.U16:
		return uint16(v)
	case wit.U32:
		return uint32(v)
	case wit.U64:
		return v
	case wit.S8:
		return int8(v)
	case wit.S16:
		return int16(v)
	case wit.S32:
		return api.DecodeI32(v)
	case wit.S64:
		return int64(v)
	case wit.F32:
		return api.DecodeF32(v)
	case wit.F64:
		return api.DecodeF64(v)
	default:
		return v
	}
}

// TypeString renders t in WIT syntax.
func TypeString(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}
