package apu

import (
	"rp2a03/emu/log"
	"rp2a03/hw/hwdefs"
	"rp2a03/hw/hwio"
	"rp2a03/hw/snapshot"
)

// noiseChannel runs a 15-bit LFSR at one of 16 rates and gates the
// envelope volume with the register's low bit.
type noiseChannel struct {
	apu   *APU
	env   envelope
	clock sequenceClock
	out   channelDAC

	shiftReg    uint16
	mode        bool // short mode: feedback taps bit 6 instead of bit 1
	periodIndex uint8
	model       hwdefs.Model

	Volume hwio.Reg8 `hwio:"offset=0x0C,wcb"`
	Unused hwio.Reg8 `hwio:"offset=0x0D,wcb"`
	Period hwio.Reg8 `hwio:"offset=0x0E,wcb"`
	Length hwio.Reg8 `hwio:"offset=0x0F,wcb"`
}

var noisePeriodNTSC = [16]uint16{4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068}
var noisePeriodPAL = [16]uint16{4, 8, 14, 30, 60, 88, 118, 148, 188, 236, 354, 472, 708, 944, 1890, 3778}

func newNoiseChannel(apu *APU, mixer mixer) noiseChannel {
	return noiseChannel{
		apu: apu,
		env: envelope{
			length: lengthCounter{
				channel: Noise,
				apu:     apu,
			},
		},
		out: channelDAC{
			channel: Noise,
			mixer:   mixer,
		},
	}
}

func (nc *noiseChannel) periodLUT() *[16]uint16 {
	if nc.model == hwdefs.PAL {
		return &noisePeriodPAL
	}
	return &noisePeriodNTSC
}

// reclock rederives the live timer period from the last written index.
// The LUT holds raw CPU-cycle rates; the divider wants one less.
func (nc *noiseChannel) reclock() {
	nc.clock.period = nc.periodLUT()[nc.periodIndex] - 1
}

func (nc *noiseChannel) setModel(model hwdefs.Model) {
	nc.model = model
	nc.reclock()
}

func (nc *noiseChannel) WriteVOLUME(_, val uint8) {
	log.ModSound.InfoZ("write noise volume").Uint8("val", val).End()
	nc.apu.Run()
	nc.env.writeControl(val)
}

func (nc *noiseChannel) WriteUNUSED(_, _ uint8) {
	nc.apu.Run()
}

func (nc *noiseChannel) WritePERIOD(_, val uint8) {
	log.ModSound.InfoZ("write noise period").Uint8("val", val).End()

	nc.apu.Run()
	nc.periodIndex = val & 0x0F
	nc.mode = val&0x80 != 0
	nc.reclock()
}

func (nc *noiseChannel) WriteLENGTH(_, val uint8) {
	log.ModSound.InfoZ("write noise length").Uint8("val", val).End()
	nc.apu.Run()
	nc.env.length.writeLoad(val)
	nc.env.requestRestart()
}

// clockShifter advances the LFSR one step: feedback is bit 0 XOR bit 1
// (bit 6 in short mode), shifted in at the top.
func (nc *noiseChannel) clockShifter() {
	tap := 1
	if nc.mode {
		tap = 6
	}
	feedback := (nc.shiftReg ^ nc.shiftReg>>tap) & 1
	nc.shiftReg = nc.shiftReg>>1 | feedback<<14
}

func (nc *noiseChannel) level() int8 {
	// Bit 0 of the shift register gates the envelope volume.
	if nc.shiftReg&1 != 0 {
		return 0
	}
	return int8(nc.env.level())
}

func (nc *noiseChannel) run(targetCycle uint32) {
	nc.clock.advance(targetCycle, func() {
		nc.clockShifter()
		nc.out.set(nc.level(), nc.clock.cursor)
	})
}

func (nc *noiseChannel) tickEnvelope() {
	nc.env.clock()
}

func (nc *noiseChannel) tickLengthCounter() {
	nc.env.length.clock()
}

func (nc *noiseChannel) reloadLengthCounter() {
	nc.env.length.commit()
}

func (nc *noiseChannel) endFrame() {
	nc.clock.rebase()
}

func (nc *noiseChannel) setEnabled(enabled bool) {
	nc.env.length.setEnabled(enabled)
}

func (nc *noiseChannel) status() bool {
	return nc.env.length.active()
}

func (nc *noiseChannel) output() uint8 {
	return uint8(nc.out.level)
}

func (nc *noiseChannel) reset(soft bool) {
	nc.env.reset(soft)
	nc.clock.reset()
	nc.out.reset()

	nc.periodIndex = 0
	nc.reclock()
	nc.shiftReg = 1
	nc.mode = false
}

func (nc *noiseChannel) saveState(state *snapshot.APUNoise) {
	nc.clock.saveState(&state.Timer)
	nc.out.saveState(&state.Timer)
	nc.env.saveState(&state.Envelope)
	state.ShiftReg = nc.shiftReg
	state.Mode = nc.mode
	state.PeriodIndex = nc.periodIndex
}

func (nc *noiseChannel) setState(state *snapshot.APUNoise) {
	nc.clock.setState(&state.Timer)
	nc.out.setState(&state.Timer)
	nc.env.setState(&state.Envelope)
	nc.shiftReg = state.ShiftReg
	nc.mode = state.Mode
	nc.periodIndex = state.PeriodIndex
}
