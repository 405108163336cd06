package apu

import (
	"rp2a03/emu/log"
	"rp2a03/hw/hwio"
	"rp2a03/hw/snapshot"
)

// triangleChannel steps a 32-entry triangle wave at the CPU clock rate
// (no divide-by-two), gated by BOTH its length counter and its linear
// counter. Its 4-bit DAC is fed straight from the sequencer.
type triangleChannel struct {
	apu    *APU
	length lengthCounter
	clock  sequenceClock
	out    channelDAC

	linear       uint8
	linearReload uint8
	reloadQueued bool
	control      bool

	step uint8

	Linear hwio.Reg8 `hwio:"offset=0x08,wcb"`
	Unused hwio.Reg8 `hwio:"offset=0x09,wcb"`
	Timer  hwio.Reg8 `hwio:"offset=0x0A,wcb"`
	Length hwio.Reg8 `hwio:"offset=0x0B,wcb"`
}

func newTriangleChannel(apu *APU, mixer mixer) triangleChannel {
	return triangleChannel{
		apu: apu,
		length: lengthCounter{
			channel: Triangle,
			apu:     apu,
		},
		out: channelDAC{
			channel: Triangle,
			mixer:   mixer,
		},
	}
}

// stepLevel maps a sequencer step to the DAC level: 15 down to 0 over the
// first half of the sequence, 0 back up to 15 over the second.
func stepLevel(step uint8) int8 {
	if step < 16 {
		return int8(15 - step)
	}
	return int8(step - 16)
}

func (tc *triangleChannel) run(targetCycle uint32) {
	tc.clock.advance(targetCycle, func() {
		if !tc.length.active() || tc.linear == 0 {
			return
		}
		tc.step = (tc.step + 1) & 0x1F

		// No ultrasonic mute: a period under 2 spins the sequencer at
		// inaudible rates and the resulting buzz is kept, like on the
		// console.
		tc.out.set(stepLevel(tc.step), tc.clock.cursor)
	})
}

func (tc *triangleChannel) WriteLINEAR(_, val uint8) {
	tc.apu.Run()

	tc.control = val&0x80 != 0
	tc.linearReload = val & 0x7F

	// The control bit doubles as the length counter halt flag.
	tc.length.writeHalt(tc.control)

	log.ModSound.InfoZ("write triangle linear").
		Uint8("reg", val).
		Bool("ctrl", tc.control).
		Uint8("reload", tc.linearReload).
		End()
}

func (tc *triangleChannel) WriteUNUSED(_, _ uint8) {
	tc.apu.Run()
}

func (tc *triangleChannel) WriteTIMER(_, val uint8) {
	tc.apu.Run()

	tc.clock.period = tc.clock.period&0xFF00 | uint16(val)

	log.ModSound.InfoZ("write triangle timer").
		Uint8("reg", val).
		Uint16("period", tc.clock.period).
		End()
}

func (tc *triangleChannel) WriteLENGTH(_, val uint8) {
	tc.apu.Run()

	tc.length.writeLoad(val)
	tc.clock.period = uint16(val&0x07)<<8 | tc.clock.period&0x00FF

	// Side effect: the linear counter reloads on the next quarter frame.
	tc.reloadQueued = true

	log.ModSound.InfoZ("write triangle length").
		Uint8("reg", val).
		Uint16("period", tc.clock.period).
		Uint8("length", val>>3).
		End()
}

// tickLinearCounter is the quarter-frame clock. While the reload flag is
// up the counter reloads instead of counting; the flag only drops once the
// control bit is clear, after which the countdown proceeds.
func (tc *triangleChannel) tickLinearCounter() {
	switch {
	case tc.reloadQueued:
		tc.linear = tc.linearReload
	case tc.linear > 0:
		tc.linear--
	}

	if !tc.control {
		tc.reloadQueued = false
	}
}

func (tc *triangleChannel) tickLengthCounter() {
	tc.length.clock()
}

func (tc *triangleChannel) reloadLengthCounter() {
	tc.length.commit()
}

func (tc *triangleChannel) endFrame() {
	tc.clock.rebase()
}

func (tc *triangleChannel) setEnabled(enabled bool) {
	tc.length.setEnabled(enabled)
}

func (tc *triangleChannel) status() bool {
	return tc.length.active()
}

func (tc *triangleChannel) output() uint8 {
	return uint8(tc.out.level)
}

func (tc *triangleChannel) reset(soft bool) {
	tc.clock.reset()
	tc.out.reset()
	tc.length.reset(soft)

	tc.linear = 0
	tc.linearReload = 0
	tc.reloadQueued = false
	tc.control = false
	tc.step = 0
}

func (tc *triangleChannel) saveState(state *snapshot.APUTriangle) {
	tc.clock.saveState(&state.Timer)
	tc.out.saveState(&state.Timer)
	tc.length.saveState(&state.LengthCounter)
	state.LinearCounter = tc.linear
	state.LinearCounterReload = tc.linearReload
	state.LinearReload = tc.reloadQueued
	state.LinearCtrl = tc.control
	state.Pos = tc.step
}

func (tc *triangleChannel) setState(state *snapshot.APUTriangle) {
	tc.clock.setState(&state.Timer)
	tc.out.setState(&state.Timer)
	tc.length.setState(&state.LengthCounter)
	tc.linear = state.LinearCounter
	tc.linearReload = state.LinearCounterReload
	tc.reloadQueued = state.LinearReload
	tc.control = state.LinearCtrl
	tc.step = state.Pos
}
