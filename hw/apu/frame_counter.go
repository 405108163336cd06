package apu

import (
	"rp2a03/emu/log"
	"rp2a03/hw/hwdefs"
	"rp2a03/hw/hwio"
	"rp2a03/hw/snapshot"
)

type frameType uint8

const (
	noFrame frameType = iota
	quarterFrame
	halfFrame
)

// Event schedules, in CPU cycles from sequence start. Row 0 is 4-step mode,
// row 1 is 5-step mode. In 4-step mode the frame IRQ is asserted on the
// last three entries.
var stepCyclesNTSC = [2][6]int32{
	{7457, 14913, 22371, 29828, 29829, 29830},
	{7457, 14913, 22371, 29829, 37281, 37282},
}

var stepCyclesPAL = [2][6]int32{
	{8313, 16627, 24939, 33252, 33253, 33254},
	{8313, 16627, 24939, 33252, 41565, 41566},
}

var stepFrameType = [2][6]frameType{
	{quarterFrame, halfFrame, quarterFrame, noFrame, halfFrame, noFrame},
	{quarterFrame, halfFrame, quarterFrame, noFrame, halfFrame, noFrame},
}

type frameCounter struct {
	apu *APU
	cpu cpu

	stepCycles        [2][6]int32
	prevCycle         int32
	curStep           uint32
	stepMode          uint32 // 0: 4-step mode, 1: 5-step mode
	inhibitIRQ        bool
	blockTick         uint8
	newval            int16
	writeDelayCounter int8

	FRAMECOUNTER hwio.Reg8 `hwio:"offset=0x17,writeonly,wcb"`
}

func (fc *frameCounter) init(apu *APU, cpu cpu) {
	fc.apu = apu
	fc.cpu = cpu
	fc.stepCycles = stepCyclesNTSC
}

func (fc *frameCounter) setModel(model hwdefs.Model) {
	if model == hwdefs.PAL {
		fc.stepCycles = stepCyclesPAL
	} else {
		fc.stepCycles = stepCyclesNTSC
	}
}

func (fc *frameCounter) reset(soft bool) {
	fc.prevCycle = 0

	// After reset: APU mode in $4017 was unchanged, so we need to keep
	// whatever value stepMode has for soft resets
	if !soft {
		fc.stepMode = 0
	}

	fc.curStep = 0

	// After reset or power-up, the APU acts as if $4017 were written with
	// $00 a few clocks before the first instruction runs.
	fc.newval = 0
	if fc.stepMode != 0 {
		fc.newval = 0x80
	}
	fc.writeDelayCounter = 3
	fc.inhibitIRQ = false

	fc.blockTick = 0
}

// $4017
func (fc *frameCounter) WriteFRAMECOUNTER(old, val uint8) {
	log.ModSound.InfoZ("write framecounter").Uint8("val", val).End()
	fc.apu.Run()
	fc.newval = int16(val)

	// Reset sequence after $4017 is written to
	if fc.cpu.CurrentCycle()&0x01 != 0 {
		// If the write occurs between APU cycles, the effects occur 4 CPU
		// cycles after the write cycle.
		fc.writeDelayCounter = 4
	} else {
		// If the write occurs during an APU cycle, the effects occur 3 CPU
		// cycles after the $4017 write cycle
		fc.writeDelayCounter = 3
	}

	fc.inhibitIRQ = (val & 0x40) == 0x40
	if fc.inhibitIRQ {
		fc.cpu.ClearIRQSource(hwdefs.FrameCounter)
	}
}

// run consumes a prefix of cyclesToRun, stopping at the next event
// boundary. It returns the number of cycles actually consumed; the caller
// keeps calling until cyclesToRun is drained.
func (fc *frameCounter) run(cyclesToRun *int32) uint32 {
	var cyclesRan int32

	if fc.prevCycle+*cyclesToRun >= fc.stepCycles[fc.stepMode][fc.curStep] {
		if !fc.inhibitIRQ && fc.stepMode == 0 && fc.curStep >= 3 {
			// Set irq on the last 3 cycles for 4-step mode
			fc.cpu.SetIRQSource(hwdefs.FrameCounter)
		}

		ftyp := stepFrameType[fc.stepMode][fc.curStep]
		if ftyp != noFrame && fc.blockTick == 0 {
			fc.apu.frameCounterTick(ftyp)

			// Do not allow writes to 4017 to clock the frame counter for the
			// next cycle (i.e this odd cycle + the following even cycle)
			fc.blockTick = 2
		}

		if fc.stepCycles[fc.stepMode][fc.curStep] < fc.prevCycle {
			// This can happen when switching from PAL to NTSC, which can cause
			// a freeze (endless loop in APU)
			cyclesRan = 0
		} else {
			cyclesRan = fc.stepCycles[fc.stepMode][fc.curStep] - fc.prevCycle
		}

		*cyclesToRun -= cyclesRan

		fc.curStep++
		if fc.curStep == 6 {
			fc.curStep = 0
			fc.prevCycle = 0
		} else {
			fc.prevCycle += cyclesRan
		}
	} else {
		cyclesRan = *cyclesToRun
		*cyclesToRun = 0
		fc.prevCycle += cyclesRan
	}

	if fc.newval >= 0 {
		fc.writeDelayCounter--
		if fc.writeDelayCounter == 0 {
			// Apply new value after the appropriate number of cycles has elapsed
			if (fc.newval & 0x80) == 0x80 {
				fc.stepMode = 1
			} else {
				fc.stepMode = 0
			}

			fc.writeDelayCounter = -1
			fc.curStep = 0
			fc.prevCycle = 0
			fc.newval = -1

			if fc.stepMode != 0 && fc.blockTick == 0 {
				// Writing to $4017 with bit 7 set will immediately generate
				// a clock for both the quarter frame and the half frame
				// units, regardless of what the sequencer is doing.
				fc.apu.frameCounterTick(halfFrame)
				fc.blockTick = 2
			}
		}
	}

	if fc.blockTick > 0 {
		fc.blockTick--
	}

	return uint32(cyclesRan)
}

func (fc *frameCounter) needToRun(cyclesToRun uint32) bool {
	// Run the APU when:
	// - A new value is pending
	// - The "blockTick" process is running
	// - We're at the before-last or last tick of the current step
	return fc.newval >= 0 ||
		fc.blockTick > 0 ||
		(fc.prevCycle+int32(cyclesToRun) >= fc.stepCycles[fc.stepMode][fc.curStep]-1)
}

func (fc *frameCounter) irqPending(cyclesToRun uint32) bool {
	if fc.inhibitIRQ || fc.stepMode != 0 {
		return false
	}
	return fc.prevCycle+int32(cyclesToRun) >= fc.stepCycles[0][3]
}

func (fc *frameCounter) saveState(state *snapshot.APUFrameCounter) {
	state.PrevCycle = fc.prevCycle
	state.CurStep = fc.curStep
	state.StepMode = fc.stepMode
	state.InhibitIRQ = fc.inhibitIRQ
	state.BlockTick = fc.blockTick
	state.NewVal = fc.newval
	state.WriteDelayCounter = fc.writeDelayCounter
}

func (fc *frameCounter) setState(state *snapshot.APUFrameCounter) {
	fc.prevCycle = state.PrevCycle
	fc.curStep = state.CurStep
	fc.stepMode = state.StepMode
	fc.inhibitIRQ = state.InhibitIRQ
	fc.blockTick = state.BlockTick
	fc.newval = state.NewVal
	fc.writeDelayCounter = state.WriteDelayCounter
}
