package wfpq

import "sync/atomic"

// ACB (AlternatingControlBlock) pairs two LCBs with a switch counter that
// selects which one is currently open to writers: even switch_count means
// the even-indexed block, odd means the odd-indexed block. switch_count
// starts at 1 (odd active) so the even block is free for the reader's
// first cycle, and it only ever increases.
type ACB struct {
	Even *LCB
	Odd  *LCB

	switchCount atomic.Uint32
}

// NewACB wraps two data spans as a fresh alternating control block.
func NewACB(evenData, oddData []byte) *ACB {
	a := &ACB{Even: NewLCB(evenData), Odd: NewLCB(oddData)}
	a.switchCount.Store(1)
	return a
}

// SwitchCount returns the current switch counter.
func (a *ACB) SwitchCount() uint32 { return a.switchCount.Load() }

// ActiveBlock returns the LCB writers should target for the given
// switch_count snapshot: even count -> Even, odd count -> Odd.
func (a *ACB) ActiveBlock(switchCount uint32) *LCB {
	if switchCount%2 == 0 {
		return a.Even
	}
	return a.Odd
}

// BlockByID returns the LCB addressed by a raw block ID (the low bit of a
// switch_count value, as returned by Switch/IsBlockReleasedByWriters).
func (a *ACB) BlockByID(id uint32) *LCB {
	if id%2 == 0 {
		return a.Even
	}
	return a.Odd
}
