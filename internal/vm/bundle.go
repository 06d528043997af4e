package vm

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Bytecode bundle format:
// - Magic number (4 bytes): "LOXB"
// - Version (1 byte)
// - CBOR-encoded bundle (canonical encoding)
var bundleMagic = []byte{'L', 'O', 'X', 'B'}

const bundleVersion byte = 1

var (
	ErrBundleTooShort   = errors.New("bytecode data too short")
	ErrBundleBadMagic   = errors.New("invalid magic number, expected LOXB")
	ErrBundleBadVersion = errors.New("unsupported bytecode version")
	ErrBundleCorrupt    = errors.New("corrupt bytecode payload")
	ErrBundleInvalid    = errors.New("invalid chunk")
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Bundle is a compiled program ready to be written to disk and run later
// without recompiling.
type Bundle struct {
	Chunk      *Chunk
	SourceFile string
}

// Wire types. Field keys are small integers so the encoding stays compact.

type wireBundle struct {
	SourceFile string    `cbor:"1,keyasint,omitempty"`
	Code       []wireIns `cbor:"2,keyasint"`
	Lines      []int     `cbor:"3,keyasint"`
	Constants  []wireVal `cbor:"4,keyasint"`
}

type wireIns struct {
	_       struct{} `cbor:",toarray"`
	Op      byte
	Operand int
}

type wireVal struct {
	Kind ValueType `cbor:"1,keyasint"`
	Num  float64   `cbor:"2,keyasint"`
	Bool bool      `cbor:"3,keyasint,omitempty"`
	Str  string    `cbor:"4,keyasint,omitempty"`
}

// IsBundle reports whether data starts with the bundle magic number.
func IsBundle(data []byte) bool {
	return bytes.HasPrefix(data, bundleMagic)
}

// Serialize encodes the bundle with its header.
func (b *Bundle) Serialize() ([]byte, error) {
	if b.Chunk == nil {
		return nil, fmt.Errorf("%w: bundle has no chunk", ErrBundleInvalid)
	}
	if err := validateChunk(b.Chunk); err != nil {
		return nil, err
	}

	w := wireBundle{
		SourceFile: b.SourceFile,
		Code:       make([]wireIns, len(b.Chunk.Code)),
		Lines:      b.Chunk.Lines,
		Constants:  make([]wireVal, len(b.Chunk.Constants)),
	}
	for i, ins := range b.Chunk.Code {
		w.Code[i] = wireIns{Op: byte(ins.Op), Operand: ins.Operand}
	}
	for i, v := range b.Chunk.Constants {
		wv, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		w.Constants[i] = wv
	}

	payload, err := cborEncMode.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("bundle cbor encoding failed: %w", err)
	}

	buf := new(bytes.Buffer)
	buf.Write(bundleMagic)
	buf.WriteByte(bundleVersion)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Deserialize decodes and validates a bundle produced by Serialize.
func Deserialize(data []byte) (*Bundle, error) {
	if len(data) < len(bundleMagic)+1 {
		return nil, ErrBundleTooShort
	}
	if !IsBundle(data) {
		return nil, ErrBundleBadMagic
	}

	version := data[len(bundleMagic)]
	if version != bundleVersion {
		return nil, fmt.Errorf("%w: %d (this binary supports version %d)",
			ErrBundleBadVersion, version, bundleVersion)
	}

	var w wireBundle
	if err := cbor.Unmarshal(data[len(bundleMagic)+1:], &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBundleCorrupt, err)
	}

	chunk := &Chunk{
		Code:      make([]Instruction, len(w.Code)),
		Lines:     w.Lines,
		Constants: make([]Value, len(w.Constants)),
	}
	if chunk.Lines == nil {
		chunk.Lines = []int{}
	}
	for i, ins := range w.Code {
		chunk.Code[i] = Instruction{Op: Opcode(ins.Op), Operand: ins.Operand}
	}
	for i, wv := range w.Constants {
		v, err := decodeValue(wv)
		if err != nil {
			return nil, err
		}
		chunk.Constants[i] = v
	}

	if err := validateChunk(chunk); err != nil {
		return nil, err
	}
	return &Bundle{Chunk: chunk, SourceFile: w.SourceFile}, nil
}

func encodeValue(v Value) (wireVal, error) {
	switch v.Type {
	case ValNil:
		return wireVal{Kind: ValNil}, nil
	case ValBool:
		b, _ := v.AsBool()
		return wireVal{Kind: ValBool, Bool: b}, nil
	case ValNumber:
		n, _ := v.AsNumber()
		return wireVal{Kind: ValNumber, Num: n}, nil
	case ValObj:
		if s, ok := v.AsString(); ok {
			return wireVal{Kind: ValObj, Str: s}, nil
		}
	}
	return wireVal{}, fmt.Errorf("%w: cannot encode constant %v", ErrBundleInvalid, v)
}

func decodeValue(w wireVal) (Value, error) {
	switch w.Kind {
	case ValNil:
		return NilVal(), nil
	case ValBool:
		return BoolVal(w.Bool), nil
	case ValNumber:
		return NumberVal(w.Num), nil
	case ValObj:
		return StringVal(w.Str), nil
	}
	return Value{}, fmt.Errorf("%w: unknown constant kind %d", ErrBundleInvalid, w.Kind)
}

// checkLines rejects a nil chunk or one whose line table is out of step
// with its code. Error reporting indexes Lines by instruction offset.
func checkLines(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("%w: nil chunk", ErrBundleInvalid)
	}
	if len(c.Code) != len(c.Lines) {
		return fmt.Errorf("%w: %d instructions but %d line entries",
			ErrBundleInvalid, len(c.Code), len(c.Lines))
	}
	return nil
}

// validateChunk checks the structural invariants the VM relies on.
func validateChunk(c *Chunk) error {
	if err := checkLines(c); err != nil {
		return err
	}
	for i, ins := range c.Code {
		if !ins.Op.Valid() {
			return fmt.Errorf("%w: unknown opcode %d at %04d", ErrBundleInvalid, byte(ins.Op), i)
		}
		if ins.Op == OP_CONSTANT && (ins.Operand < 0 || ins.Operand >= len(c.Constants)) {
			return fmt.Errorf("%w: constant index %d out of range at %04d", ErrBundleInvalid, ins.Operand, i)
		}
	}
	return nil
}
