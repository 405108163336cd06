package main

import (
	"rp2a03/hw/apu"
	"rp2a03/hw/hwdefs"
)

// driver is the minimal CPU stand-in apuplay runs the APU with: an IRQ
// latch, a cycle counter, and a DMC DMA serviced on the spot. A real CPU
// core halts for up to 4 cycles around the fetch; here the stall cycles are
// only accounted for, since there is no instruction stream to delay.
type driver struct {
	apu *apu.APU

	irqs   hwdefs.IRQSource
	cycle  uint32
	stalls uint64

	// sample memory, mapped at $8000-$FFFF like PRG ROM.
	sampleROM []byte
}

func (d *driver) HasIRQSource(src hwdefs.IRQSource) bool {
	return d.irqs&src != 0
}

func (d *driver) SetIRQSource(src hwdefs.IRQSource) {
	d.irqs |= src
}

func (d *driver) ClearIRQSource(src hwdefs.IRQSource) {
	d.irqs &^= src
}

func (d *driver) CurrentCycle() uint32 {
	return d.cycle
}

func (d *driver) StartDMCTransfer() {
	addr := d.apu.DMC.CurrentAddr()
	var val uint8
	if len(d.sampleROM) > 0 {
		val = d.sampleROM[int(addr&0x7FFF)%len(d.sampleROM)]
	}
	d.apu.DMC.SetReadBuffer(val)
	d.stalls += 4
}

func (d *driver) StopDMCTransfer() {}

func (d *driver) step() {
	d.cycle++
	d.apu.Tick()
}
