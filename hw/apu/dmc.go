package apu

import (
	"rp2a03/emu/log"
	"rp2a03/hw/hwdefs"
	"rp2a03/hw/hwio"
	"rp2a03/hw/snapshot"
)

// dmcChannel plays 1-bit delta-encoded samples fetched from CPU memory. A
// DMA reader keeps a one-byte buffer topped up (halting the CPU around the
// fetch, see the cpu interface); an output unit shifts the buffered bits
// through a ±2 staircase on a 7-bit DAC. The DAC can also be written
// directly through $4011.
type dmcChannel struct {
	apu   *APU
	cpu   cpu
	clock sequenceClock
	out   channelDAC

	sampleAddr uint16
	sampleLen  uint16
	outlvl     uint8
	irqEnabled bool
	loop       bool

	curaddr   uint16
	remaining uint16
	readbuf   uint8
	bufEmpty  bool

	shiftReg     uint8
	bitsLeft     uint8
	silence      bool
	needToRun    bool
	disableDelay uint8
	startDelay   uint8 // delay before transfer starts

	rateIndex uint8
	model     hwdefs.Model

	FLAGS      hwio.Reg8 `hwio:"offset=0x10,writeonly,wcb"`
	LOAD       hwio.Reg8 `hwio:"offset=0x11,writeonly,wcb"`
	SAMPLEADDR hwio.Reg8 `hwio:"offset=0x12,writeonly,wcb"`
	SAMPLELEN  hwio.Reg8 `hwio:"offset=0x13,writeonly,wcb"`
}

var dmcPeriodNTSC = [16]uint16{428, 380, 340, 320, 286, 254, 226, 214, 190, 160, 142, 128, 106, 84, 72, 54}
var dmcPeriodPAL = [16]uint16{398, 354, 316, 298, 276, 236, 210, 198, 176, 148, 132, 118, 98, 78, 66, 50}

func newDMCChannel(apu *APU, cpu cpu, mixer mixer) dmcChannel {
	return dmcChannel{
		apu:     apu,
		cpu:     cpu,
		silence: true,
		out: channelDAC{
			channel: DPCM,
			mixer:   mixer,
		},
	}
}

func (dc *dmcChannel) periodLUT() *[16]uint16 {
	if dc.model == hwdefs.PAL {
		return &dmcPeriodPAL
	}
	return &dmcPeriodNTSC
}

func (dc *dmcChannel) reclock() {
	dc.clock.period = dc.periodLUT()[dc.rateIndex] - 1
}

func (dc *dmcChannel) setModel(model hwdefs.Model) {
	dc.model = model
	dc.reclock()
}

func (dc *dmcChannel) initSample() {
	dc.curaddr = dc.sampleAddr
	dc.remaining = dc.sampleLen
	dc.needToRun = dc.needToRun || dc.remaining > 0
}

func (dc *dmcChannel) reset(soft bool) {
	dc.clock.reset()
	dc.out.reset()

	if !soft {
		// $4012/$4013 survive soft resets.
		dc.sampleAddr = 0xC000
		dc.sampleLen = 1
	}

	dc.outlvl = 0
	dc.irqEnabled = false
	dc.loop = false

	dc.curaddr = 0
	dc.remaining = 0
	dc.readbuf = 0
	dc.bufEmpty = true

	dc.shiftReg = 0
	dc.bitsLeft = 8
	dc.silence = true
	dc.needToRun = false
	dc.startDelay = 0
	dc.disableDelay = 0

	dc.rateIndex = 0
	dc.reclock()

	// Hold the first tick back a full period (keeps sprite DMC/DMA
	// interactions aligned).
	dc.clock.countdown = dc.clock.period
}

// $4010
func (dc *dmcChannel) WriteFLAGS(_, val uint8) {
	dc.apu.Run()

	dc.irqEnabled = val&0x80 != 0
	dc.loop = val&0x40 != 0
	dc.rateIndex = val & 0x0F
	dc.reclock()

	if !dc.irqEnabled {
		dc.cpu.ClearIRQSource(hwdefs.DMC)
	}

	log.ModSound.InfoZ("write dmc FLAGS").
		Uint8("reg", val).
		Bool("irq enabled", dc.irqEnabled).
		Bool("loop", dc.loop).
		Uint16("period", dc.clock.period).
		End()
}

// $4011: the 7-bit DAC counter is set directly. Games stream PCM through
// this register; the new level reaches the mixer right away, not on the
// timer's next reload.
func (dc *dmcChannel) WriteLOAD(_, val uint8) {
	dc.apu.Run()

	dc.outlvl = val & 0x7F
	dc.out.set(int8(dc.outlvl), dc.clock.cursor)

	log.ModSound.InfoZ("write dmc LOAD").
		Uint8("reg", val).
		Uint8("out lvl", dc.outlvl).
		End()
}

// $4012: start of DMC sample is at address $C000 + $40*$xx
func (dc *dmcChannel) WriteSAMPLEADDR(_, val uint8) {
	dc.apu.Run()
	dc.sampleAddr = 0xC000 | uint16(val)<<6

	log.ModSound.InfoZ("write dmc SAMPLEADDR").
		Uint8("val", val).
		Uint16("addr", dc.sampleAddr).
		End()
}

// $4013: length of DMC waveform is $10*$xx + 1 bytes (128*$xx + 8 samples)
func (dc *dmcChannel) WriteSAMPLELEN(_, val uint8) {
	dc.apu.Run()
	dc.sampleLen = uint16(val)<<4 | 0x1

	log.ModSound.InfoZ("write dmc SAMPLELEN").
		Uint8("val", val).
		Uint16("len", dc.sampleLen).
		End()
}

func (dc *dmcChannel) startDMCTransfer() {
	if dc.bufEmpty && dc.remaining > 0 {
		dc.cpu.StartDMCTransfer()
	}
}

// CurrentAddr is the bus address of the next sample byte to fetch.
func (dc *dmcChannel) CurrentAddr() uint16 {
	return dc.curaddr
}

// SetReadBuffer hands the DMC the sample byte the CPU fetched for it, at
// the end of a DMC DMA.
func (dc *dmcChannel) SetReadBuffer(val uint8) {
	log.ModSound.DebugZ("set DMC read buffer").
		Uint8("value", val).
		End()

	if dc.remaining > 0 {
		dc.readbuf = val
		dc.bufEmpty = false

		// Address wraps around to $8000, not $0000.
		dc.curaddr++
		if dc.curaddr == 0 {
			dc.curaddr = 0x8000
		}

		dc.remaining--

		if dc.remaining == 0 {
			if dc.loop {
				// Looped sample should never set IRQ flag
				dc.initSample()
			} else if dc.irqEnabled {
				dc.cpu.SetIRQSource(hwdefs.DMC)
			}
		}
	}

	if dc.sampleLen == 1 && !dc.loop {
		if dc.bitsLeft == 1 && dc.clock.countdown < 2 {
			// When the DMA ends on the APU cycle before the bit counter
			// resets, a DMA is triggered and aborted 1 cycle later (causing
			// one halted CPU cycle).
			dc.shiftReg = dc.readbuf
			dc.bufEmpty = false
			dc.initSample()
			dc.disableDelay = 3
		}
	}
}

// clockOutputUnit shifts one sample bit through the staircase and refills
// the shifter from the buffer every 8 bits.
func (dc *dmcChannel) clockOutputUnit() {
	if !dc.silence {
		if dc.shiftReg&1 != 0 {
			if dc.outlvl <= 125 {
				dc.outlvl += 2
			}
		} else if dc.outlvl >= 2 {
			dc.outlvl -= 2
		}
		dc.shiftReg >>= 1
	}

	dc.bitsLeft--
	if dc.bitsLeft > 0 {
		return
	}

	dc.bitsLeft = 8
	dc.silence = dc.bufEmpty
	if !dc.bufEmpty {
		dc.shiftReg = dc.readbuf
		dc.bufEmpty = true
		dc.needToRun = true
		dc.startDMCTransfer()
	}
}

func (dc *dmcChannel) run(targetCycle uint32) {
	dc.clock.advance(targetCycle, func() {
		dc.clockOutputUnit()
		dc.out.set(int8(dc.outlvl), dc.clock.cursor)
	})
}

func (dc *dmcChannel) irqPending(cyclesToRun uint32) bool {
	if !dc.irqEnabled || dc.remaining == 0 {
		return false
	}
	// The IRQ lands when the last buffered byte drains.
	ncycles := (uint16(dc.bitsLeft) + (dc.remaining-1)*8) * dc.clock.period
	return cyclesToRun >= uint32(ncycles)
}

func (dc *dmcChannel) status() bool {
	return dc.remaining > 0
}

func (dc *dmcChannel) endFrame() {
	dc.clock.rebase()
}

func (dc *dmcChannel) setEnabled(enabled bool) {
	if !enabled {
		if dc.disableDelay == 0 {
			// Disabling takes effect with a 1 apu cycle delay.
			// If a DMA starts during this time, it gets cancelled
			// but this will still cause the CPU to be halted for 1 cycle
			if dc.cpu.CurrentCycle()&0x01 == 0 {
				dc.disableDelay = 2
			} else {
				dc.disableDelay = 3
			}
		}
		dc.needToRun = true
	} else if dc.remaining == 0 {
		dc.initSample()

		// Delay a number of cycles based on odd/even cycles
		// Allows behavior to match dmc_dma_start_test
		if dc.cpu.CurrentCycle()&0x01 == 0 {
			dc.startDelay = 2
		} else {
			dc.startDelay = 3
		}
		dc.needToRun = true
	}
}

func (dc *dmcChannel) processClock() {
	if dc.disableDelay != 0 {
		dc.disableDelay--
		if dc.disableDelay == 0 {
			dc.remaining = 0
			// Abort any on-going transfer that hasn't fully started.
			dc.cpu.StopDMCTransfer()
		}
	}

	if dc.startDelay != 0 {
		dc.startDelay--
		if dc.startDelay == 0 {
			dc.startDMCTransfer()
		}
	}

	dc.needToRun = dc.disableDelay != 0 || dc.startDelay != 0 || dc.remaining != 0
}

func (dc *dmcChannel) checkNeedToRun() bool {
	if dc.needToRun {
		dc.processClock()
	}
	return dc.needToRun
}

func (dc *dmcChannel) output() uint8 {
	return uint8(dc.out.level)
}

func (dc *dmcChannel) saveState(state *snapshot.APUDMC) {
	dc.clock.saveState(&state.Timer)
	dc.out.saveState(&state.Timer)
	state.SampleAddr = dc.sampleAddr
	state.SampleLen = dc.sampleLen
	state.OutputLevel = dc.outlvl
	state.RateIndex = dc.rateIndex
	state.IRQEnabled = dc.irqEnabled
	state.Loop = dc.loop
	state.CurrentAddr = dc.curaddr
	state.Remaining = dc.remaining
	state.ReadBuf = dc.readbuf
	state.BufEmpty = dc.bufEmpty
	state.ShiftReg = dc.shiftReg
	state.BitsLeft = dc.bitsLeft
	state.Silence = dc.silence
	state.NeedToRun = dc.needToRun
	state.StartDelay = dc.startDelay
	state.DisableDelay = dc.disableDelay
}

func (dc *dmcChannel) setState(state *snapshot.APUDMC) {
	dc.clock.setState(&state.Timer)
	dc.out.setState(&state.Timer)
	dc.sampleAddr = state.SampleAddr
	dc.sampleLen = state.SampleLen
	dc.outlvl = state.OutputLevel
	dc.rateIndex = state.RateIndex
	dc.irqEnabled = state.IRQEnabled
	dc.loop = state.Loop
	dc.curaddr = state.CurrentAddr
	dc.remaining = state.Remaining
	dc.readbuf = state.ReadBuf
	dc.bufEmpty = state.BufEmpty
	dc.shiftReg = state.ShiftReg
	dc.bitsLeft = state.BitsLeft
	dc.silence = state.Silence
	dc.needToRun = state.NeedToRun
	dc.startDelay = state.StartDelay
	dc.disableDelay = state.DisableDelay
}
