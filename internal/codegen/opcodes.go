package codegen

// Raw WASM instruction opcodes the lowering passes emit directly. Grouped
// here rather than inlined at each call site, mirroring how the reference
// generator (other_examples' wasmbe.go) keeps its op* byte constants
// together instead of scattering literals through the lowering code.
var (
	opUnreachable = []byte{0x00}
	opNop         = []byte{0x01}
	opBlock       = []byte{0x02}
	opLoop        = []byte{0x03}
	opIf          = []byte{0x04}
	opElse        = []byte{0x05}
	opEndIns      = []byte{0x0b}
	opBr          = []byte{0x0c}
	opBrIf        = []byte{0x0d}
	opReturn      = []byte{0x0f}
	opCall        = []byte{0x10}
	opCallRef     = []byte{0x14}

	opDrop      = []byte{0x1a}
	opLocalGet  = []byte{0x20}
	opLocalSet  = []byte{0x21}
	opLocalTee  = []byte{0x22}
	opGlobalGet = []byte{0x23}
	opGlobalSet = []byte{0x24}

	opI32Const = []byte{0x41}
	opI64Const = []byte{0x42}
	opF32Const = []byte{0x43}
	opF64Const = []byte{0x44}

	opI32Eqz = []byte{0x45}
	opI32Eq  = []byte{0x46}
	opI32Ne  = []byte{0x47}
	opI32LtS = []byte{0x48}
	opI32GtS = []byte{0x4a}
	opI32LeS = []byte{0x4c}
	opI32GeS = []byte{0x4e}

	opI32Add = []byte{0x6a}
	opI32Sub = []byte{0x6b}
	opI32Mul = []byte{0x6c}
	opI32DivS = []byte{0x6d}
	opI32RemS = []byte{0x6f}
	opI32And  = []byte{0x71}
	opI32Or   = []byte{0x72}
	opI32Xor  = []byte{0x73}
	opI32Shl  = []byte{0x74}
	opI32ShrS = []byte{0x75}
	opI32ShrU = []byte{0x76}

	opI64Add = []byte{0x7c}
	opI64Sub = []byte{0x7d}
	opI64Mul = []byte{0x7e}

	opF64Add = []byte{0xa0}
	opF64Sub = []byte{0xa1}
	opF64Mul = []byte{0xa2}
	opF64Div = []byte{0xa3}
	opF64Eq  = []byte{0x61}
	opF64Lt  = []byte{0x63}
	opF64Gt  = []byte{0x64}
	opF64Le  = []byte{0x65}
	opF64Ge  = []byte{0x66}

	opRefNull = []byte{0xd0}
	opRefFunc = []byte{0xd2}
	opRefEq   = []byte{0xd3}
	opRefIsNull = []byte{0xd1}

	// GC proposal instructions, 0xfb-prefixed, sub-opcode as a following byte.
	opStructNew        = []byte{0xfb, 0x00}
	opStructNewDefault = []byte{0xfb, 0x01}
	opStructGet        = []byte{0xfb, 0x02}
	opStructSet        = []byte{0xfb, 0x05}
	opArrayNew         = []byte{0xfb, 0x06}
	opArrayNewDefault  = []byte{0xfb, 0x07}
	opArrayGet         = []byte{0xfb, 0x0b}
	opArraySet         = []byte{0xfb, 0x0e}
	opArrayLen         = []byte{0xfb, 0x0f}
	opRefCast          = []byte{0xfb, 0x17}
	opRefTest          = []byte{0xfb, 0x14}

	// Exception-handling proposal.
	opThrow = []byte{0x08}
)
