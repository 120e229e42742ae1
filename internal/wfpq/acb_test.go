package wfpq

import "testing"

func TestACBActiveBlockParity(t *testing.T) {
	acb := NewACB(make([]byte, 64), make([]byte, 64))

	if acb.SwitchCount() != 1 {
		t.Fatalf("initial switch_count = %d, want 1", acb.SwitchCount())
	}
	if acb.ActiveBlock(1) != acb.Odd {
		t.Fatal("odd switch_count must select the odd block")
	}
	if acb.ActiveBlock(2) != acb.Even {
		t.Fatal("even switch_count must select the even block")
	}
	if acb.BlockByID(0) != acb.Even || acb.BlockByID(1) != acb.Odd {
		t.Fatal("BlockByID must route id 0 to Even and id 1 to Odd")
	}
}
