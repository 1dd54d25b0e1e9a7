package ir

// Base is a node in the lowered IR tree. Every concrete node type implements
// the unexported baseNode marker, the same closed-sum-type pattern used
// throughout this system for tagged unions.
//
// Invariants: operand evaluation order is left-to-right; BreakNode and
// ContinueNode are only valid somewhere inside an enclosing LoopNode;
// SetLocalNode, StoreNode, NopNode, and the control-transfer nodes produce
// no useful value.
type Base interface {
	baseNode()
}

// CallNode calls another function in the module's function table by index,
// passing args left to right.
type CallNode struct {
	FuncIdx uint32
	Args    []Base
}

// NopNode does nothing and produces no value.
type NopNode struct{}

// INumOpNode is a width-polymorphic integer arithmetic operation.
type INumOpNode struct {
	Width Width
	Op    INumOp
	LHS   Base
	RHS   Base
}

// ICompOpNode is a width-polymorphic integer comparison, converted to a 0/1
// integer result of the same width.
type ICompOpNode struct {
	Width Width
	Op    ICompOp
	LHS   Base
	RHS   Base
}

// ConstNode is a literal constant.
type ConstNode struct {
	Value Const
}

// SeqNode evaluates A for effect, discards its value, then evaluates B and
// yields B's value. Used to model imperative side-effecting statements
// (stores, set-locals) chained ahead of the next tree node.
type SeqNode struct {
	A Base
	B Base
}

// GetLocalNode reads a local variable or parameter.
type GetLocalNode struct {
	Local Local
}

// SetLocalNode evaluates Value and stores it into Local.
type SetLocalNode struct {
	Local Local
	Value Base
}

// GetGlobalNode reads a global. Only ThreadID is legal; anything else is
// rejected during SPIR-V lowering.
type GetGlobalNode struct {
	Global Global
}

// LoadNode reads Ty from the storage buffer at a byte offset given by Addr.
type LoadNode struct {
	Ty   ValueType
	Addr Base
}

// StoreNode writes Value of type Ty into the storage buffer at a byte
// offset given by Addr. Addr is evaluated before Value, matching WASM's
// stack order for store instructions (the address is pushed first).
type StoreNode struct {
	Ty    ValueType
	Addr  Base
	Value Base
}

// IfNode is a structured conditional. Then and Else are always present
// (Else may be NopNode for an `if` with no `else` arm).
type IfNode struct {
	Cond Base
	Then Base
	Else Base
}

// LoopNode is a structured loop. WASM `loop` falls through to the end of
// the loop at natural completion (unlike SPIR-V's default, which branches
// back to the header) — the SPIR-V emitter must account for this.
type LoopNode struct {
	Body Base
}

// ContinueNode branches to the innermost enclosing loop's continue target.
type ContinueNode struct{}

// BreakNode branches to the innermost enclosing loop's merge target.
type BreakNode struct{}

// ReturnNode returns from the current function. Value is nil for a void
// function; otherwise it is the expression being returned (WASM's explicit
// `return` pops the function's result values off the operand stack — a
// fallthrough to the end of the body, with no explicit `return`, instead
// yields its value as the tree's own result and needs no ReturnNode at all).
type ReturnNode struct {
	Value Base
}

func (CallNode) baseNode()      {}
func (NopNode) baseNode()       {}
func (INumOpNode) baseNode()    {}
func (ICompOpNode) baseNode()   {}
func (ConstNode) baseNode()     {}
func (SeqNode) baseNode()       {}
func (GetLocalNode) baseNode()  {}
func (SetLocalNode) baseNode()  {}
func (GetGlobalNode) baseNode() {}
func (LoadNode) baseNode()      {}
func (StoreNode) baseNode()     {}
func (IfNode) baseNode()        {}
func (LoopNode) baseNode()      {}
func (ContinueNode) baseNode()  {}
func (BreakNode) baseNode()     {}
func (ReturnNode) baseNode()    {}

// Fun is a lowered function: its parameter types, optional result type
// (nil denotes void), and its body tree.
type Fun struct {
	Params []ValueType
	Ty     *ValueType
	Body   Base
}
