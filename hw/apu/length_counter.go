package apu

import "rp2a03/hw/snapshot"

// Load values, keyed by the high 5 bits of the length register.
var lengthLUT = [32]uint8{
	10, 254, 20, 2, 40, 4, 80, 6,
	160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 18, 48, 20, 96, 22,
	192, 24, 72, 26, 16, 28, 32, 30,
}

// lengthCounter silences its channel once it has counted down to zero.
// Register writes do not take effect immediately: the load and the halt
// flag are queued and committed on the next catch-up pass, after the frame
// counter had a chance to clock the old value. A load that races such a
// clock loses (the counter keeps the clocked value).
type lengthCounter struct {
	channel Channel
	apu     *APU

	enabled bool
	halted  bool
	value   uint8

	pendingHalt bool
	pendingLoad uint8 // 0 = nothing queued (no LUT entry is 0)
	valueBefore uint8 // counter value observed when the load was queued
}

func (lc *lengthCounter) writeHalt(halt bool) {
	lc.pendingHalt = halt
	lc.apu.setNeedToRun()
}

// writeLoad queues a reload from the length register value. Ignored while
// the channel is disabled.
func (lc *lengthCounter) writeLoad(regval uint8) {
	if !lc.enabled {
		return
	}
	lc.pendingLoad = lengthLUT[regval>>3]
	lc.valueBefore = lc.value
	lc.apu.setNeedToRun()
}

// commit applies whatever writeHalt/writeLoad queued.
func (lc *lengthCounter) commit() {
	lc.halted = lc.pendingHalt

	if lc.pendingLoad == 0 {
		return
	}
	if lc.value == lc.valueBefore {
		lc.value = lc.pendingLoad
	}
	lc.pendingLoad = 0
}

// clock is the half-frame tick. The counter saturates at zero.
func (lc *lengthCounter) clock() {
	if lc.value > 0 && !lc.halted {
		lc.value--
	}
}

func (lc *lengthCounter) active() bool {
	return lc.value > 0
}

func (lc *lengthCounter) setEnabled(enabled bool) {
	if !enabled {
		lc.value = 0
	}
	lc.enabled = enabled
}

func (lc *lengthCounter) reset(soft bool) {
	lc.enabled = false
	if soft && lc.channel == Triangle {
		// The triangle's halt flag and counter ride out a soft reset.
		return
	}
	lc.halted = false
	lc.pendingHalt = false
	lc.value = 0
	lc.pendingLoad = 0
	lc.valueBefore = 0
}

func (lc *lengthCounter) saveState(state *snapshot.APULengthCounter) {
	state.Enabled = lc.enabled
	state.Halt = lc.halted
	state.NewHalt = lc.pendingHalt
	state.Counter = lc.value
	state.ReloadValue = lc.pendingLoad
	state.PreviousValue = lc.valueBefore
}

func (lc *lengthCounter) setState(state *snapshot.APULengthCounter) {
	lc.enabled = state.Enabled
	lc.halted = state.Halt
	lc.pendingHalt = state.NewHalt
	lc.value = state.Counter
	lc.pendingLoad = state.ReloadValue
	lc.valueBefore = state.PreviousValue
}
