package apu

import (
	"rp2a03/emu/log"
	"rp2a03/hw/hwio"
	"rp2a03/hw/snapshot"
)

// The two square channels live at $4000 and $4004. Each couples an
// envelope, a sweep unit, a divide-by-two timer, an 8-step duty sequencer
// and a length counter in front of a 4-bit DAC.
//
// The only difference between the two is how the sweep negates: square 1
// subtracts in ones' complement (one lower than square 2's two's
// complement). That asymmetry is the channel's identity.
type squareChannel struct {
	apu      *APU
	envelope envelope
	sweep    sweepUnit
	clock    sequenceClock
	out      channelDAC

	dutyMode uint8
	step     uint8  // current sequencer step, walked downward
	period   uint16 // raw 11-bit period as written, before the x2 timer

	Duty   hwio.Reg8 `hwio:"offset=0x00,wcb"`
	Sweep  hwio.Reg8 `hwio:"offset=0x01,wcb"`
	Timer  hwio.Reg8 `hwio:"offset=0x02,wcb"`
	Length hwio.Reg8 `hwio:"offset=0x03,wcb"`
}

// sweepUnit periodically retunes its channel towards a target period
// derived by shifting the current one. An out-of-range target mutes the
// channel outright.
type sweepUnit struct {
	enabled bool
	negate  bool
	shift   uint8
	period  uint8
	divider uint8
	reload  bool
	target  uint32

	onesComplement bool
}

func newSquareChannel(apu *APU, mixer mixer, channel Channel, isChannel1 bool) squareChannel {
	return squareChannel{
		apu:   apu,
		sweep: sweepUnit{onesComplement: isChannel1},
		envelope: envelope{
			length: lengthCounter{
				channel: channel,
				apu:     apu,
			},
		},
		out: channelDAC{
			channel: channel,
			mixer:   mixer,
		},
	}
}

// Duty sequences as bitmasks, bit n holding the level at sequencer step n
// (12.5%, 25%, 50% and inverted 25%). The sequencer walks the bits
// downward from 7.
var dutyMasks = [4]uint8{0x80, 0xC0, 0xF0, 0x3F}

func (sc *squareChannel) WriteDUTY(_, val uint8) {
	sc.apu.Run()

	sc.envelope.writeControl(val)
	sc.dutyMode = val >> 6

	log.ModSound.InfoZ("write pulse duty").
		Uint8("reg", val).
		Uint8("duty", sc.dutyMode).
		End()
}

func (sc *squareChannel) WriteSWEEP(_, val uint8) {
	sc.apu.Run()

	sw := &sc.sweep
	sw.enabled = val&0x80 != 0
	sw.negate = val&0x08 != 0
	sw.period = (val>>4)&0x07 + 1 // divider runs at P+1
	sw.shift = val & 0x07
	sw.reload = true
	sc.retarget()

	log.ModSound.InfoZ("write pulse sweep").
		Uint8("reg", val).
		End()
}

func (sc *squareChannel) WriteTIMER(_, val uint8) {
	sc.apu.Run()
	sc.retune(sc.period&0x0700 | uint16(val))

	log.ModSound.InfoZ("write pulse timer").
		Uint8("reg", val).
		Uint16("period", sc.period).
		End()
}

func (sc *squareChannel) WriteLENGTH(_, val uint8) {
	sc.apu.Run()

	sc.envelope.length.writeLoad(val)
	sc.retune(uint16(val&0x07)<<8 | sc.period&0x00FF)

	// Writing $4003 snaps the sequencer back to the first step and rearms
	// the envelope.
	sc.step = 0
	sc.envelope.requestRestart()

	log.ModSound.InfoZ("write pulse length").
		Uint8("reg", val).
		Uint16("period", sc.period).
		End()
}

// retune installs a new raw period. The timer runs at twice the raw period
// (plus one), and the sweep target tracks every period change.
func (sc *squareChannel) retune(period uint16) {
	sc.period = period
	sc.clock.period = period<<1 | 1
	sc.retarget()
}

func (sc *squareChannel) retarget() {
	sw := &sc.sweep
	base := uint32(sc.period)
	delta := uint32(sc.period >> sw.shift)

	switch {
	case !sw.negate:
		sw.target = base + delta
	case sw.onesComplement:
		sw.target = base - delta - 1
	default:
		sw.target = base - delta
	}
}

// silenced reports whether the channel is forced to zero: periods under 8
// and overflowing (non-negated) sweep targets both mute it.
func (sc *squareChannel) silenced() bool {
	if sc.period < 8 {
		return true
	}
	return !sc.sweep.negate && sc.sweep.target > 0x7FF
}

func (sc *squareChannel) level() int8 {
	if sc.silenced() {
		return 0
	}
	if dutyMasks[sc.dutyMode]>>sc.step&1 == 0 {
		return 0
	}
	return int8(sc.envelope.level())
}

func (sc *squareChannel) run(targetCycle uint32) {
	sc.clock.advance(targetCycle, func() {
		sc.step = (sc.step + 7) & 7
		sc.out.set(sc.level(), sc.clock.cursor)
	})
}

func (sc *squareChannel) tickSweep() {
	sw := &sc.sweep

	sw.divider--
	if sw.divider == 0 {
		if sw.shift > 0 && sw.enabled && sc.period >= 8 && sw.target <= 0x7FF {
			sc.retune(uint16(sw.target))
		}
		sw.divider = sw.period
	}

	// A $4001 write reloads the divider on the next half frame, after the
	// clocking above.
	if sw.reload {
		sw.divider = sw.period
		sw.reload = false
	}
}

func (sc *squareChannel) tickEnvelope() {
	sc.envelope.clock()
}

func (sc *squareChannel) tickLengthCounter() {
	sc.envelope.length.clock()
}

func (sc *squareChannel) reloadLengthCounter() {
	sc.envelope.length.commit()
}

func (sc *squareChannel) endFrame() {
	sc.clock.rebase()
}

func (sc *squareChannel) setEnabled(enabled bool) {
	sc.envelope.length.setEnabled(enabled)
}

func (sc *squareChannel) status() bool {
	return sc.envelope.length.active()
}

func (sc *squareChannel) output() uint8 {
	return uint8(sc.out.level)
}

func (sc *squareChannel) reset(soft bool) {
	sc.envelope.reset(soft)
	sc.clock.reset()
	sc.out.reset()

	sc.dutyMode = 0
	sc.step = 0
	sc.period = 0
	sc.sweep = sweepUnit{onesComplement: sc.sweep.onesComplement}
	sc.retarget()
}

func (sc *squareChannel) saveState(state *snapshot.APUSquare) {
	sc.clock.saveState(&state.Timer)
	sc.out.saveState(&state.Timer)
	sc.envelope.saveState(&state.Envelope)
	state.Duty = sc.dutyMode
	state.DutyPos = sc.step
	state.RealPeriod = sc.period
	state.SweepEnabled = sc.sweep.enabled
	state.SweepPeriod = sc.sweep.period
	state.SweepNegate = sc.sweep.negate
	state.SweepShift = sc.sweep.shift
	state.ReloadSweep = sc.sweep.reload
	state.SweepDivider = sc.sweep.divider
	state.SweepTargetPeriod = sc.sweep.target
}

func (sc *squareChannel) setState(state *snapshot.APUSquare) {
	sc.clock.setState(&state.Timer)
	sc.out.setState(&state.Timer)
	sc.envelope.setState(&state.Envelope)
	sc.dutyMode = state.Duty
	sc.step = state.DutyPos
	sc.period = state.RealPeriod
	sc.sweep.enabled = state.SweepEnabled
	sc.sweep.period = state.SweepPeriod
	sc.sweep.negate = state.SweepNegate
	sc.sweep.shift = state.SweepShift
	sc.sweep.reload = state.ReloadSweep
	sc.sweep.divider = state.SweepDivider
	sc.sweep.target = state.SweepTargetPeriod
}
