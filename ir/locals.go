package ir

// LocalsUsed walks a function body and returns the set of locals actually
// read or written, keyed by index. The SPIR-V emitter only needs to
// allocate storage for locals this set contains; a declared-but-dead local
// never needs a backing OpVariable.
func LocalsUsed(body Base) map[uint32]ValueType {
	used := make(map[uint32]ValueType)
	walkLocals(body, used)
	return used
}

func walkLocals(n Base, used map[uint32]ValueType) {
	switch v := n.(type) {
	case CallNode:
		for _, a := range v.Args {
			walkLocals(a, used)
		}
	case NopNode, ConstNode, ContinueNode, BreakNode:
		// no children
	case ReturnNode:
		if v.Value != nil {
			walkLocals(v.Value, used)
		}
	case INumOpNode:
		walkLocals(v.LHS, used)
		walkLocals(v.RHS, used)
	case ICompOpNode:
		walkLocals(v.LHS, used)
		walkLocals(v.RHS, used)
	case SeqNode:
		walkLocals(v.A, used)
		walkLocals(v.B, used)
	case GetLocalNode:
		used[v.Local.Idx] = v.Local.Ty
	case SetLocalNode:
		used[v.Local.Idx] = v.Local.Ty
		walkLocals(v.Value, used)
	case GetGlobalNode:
		// globals are not locals
	case LoadNode:
		walkLocals(v.Addr, used)
	case StoreNode:
		walkLocals(v.Addr, used)
		walkLocals(v.Value, used)
	case IfNode:
		walkLocals(v.Cond, used)
		walkLocals(v.Then, used)
		walkLocals(v.Else, used)
	case LoopNode:
		walkLocals(v.Body, used)
	}
}
