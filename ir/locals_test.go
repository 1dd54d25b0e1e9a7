package ir

import "testing"

func TestLocalsUsedCollectsReadsAndWrites(t *testing.T) {
	body := SeqNode{
		A: SetLocalNode{Local: Local{Idx: 2, Ty: F32}, Value: GetLocalNode{Local: Local{Idx: 0, Ty: I32}}},
		B: INumOpNode{
			Width: W32,
			Op:    Add,
			LHS:   GetLocalNode{Local: Local{Idx: 0, Ty: I32}},
			RHS:   GetLocalNode{Local: Local{Idx: 1, Ty: I32}},
		},
	}

	used := LocalsUsed(body)
	if len(used) != 3 {
		t.Fatalf("got %d locals, want 3: %+v", len(used), used)
	}
	if used[0] != I32 || used[1] != I32 || used[2] != F32 {
		t.Errorf("used = %+v", used)
	}
}

func TestLocalsUsedIgnoresGlobalsAndConsts(t *testing.T) {
	body := IfNode{
		Cond: GetGlobalNode{Global: ThreadID},
		Then: ConstNode{Value: ConstI32(1)},
		Else: NopNode{},
	}

	used := LocalsUsed(body)
	if len(used) != 0 {
		t.Errorf("got %d locals, want 0: %+v", len(used), used)
	}
}

func TestLocalsUsedWalksLoopAndLoadStore(t *testing.T) {
	body := LoopNode{
		Body: StoreNode{
			Ty:    I32,
			Addr:  GetLocalNode{Local: Local{Idx: 3, Ty: I32}},
			Value: LoadNode{Ty: I32, Addr: GetLocalNode{Local: Local{Idx: 4, Ty: I32}}},
		},
	}

	used := LocalsUsed(body)
	if len(used) != 2 {
		t.Fatalf("got %d locals, want 2: %+v", len(used), used)
	}
}
