package apu

import (
	"testing"

	"rp2a03/hw/hwdefs"
)

func TestFrameIRQFourStepMode(t *testing.T) {
	tb := newTestBench(t)

	tb.write(0x4017, 0x00) // 4-step, IRQ enabled

	// The IRQ fires at the end of the 4-step sequence (first raised 29828
	// cycles after the deferred $4017 reset applies).
	tb.cpu.step(29810)
	if tb.cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Fatal("frame IRQ raised too early")
	}

	tb.cpu.step(30)
	if !tb.cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Fatal("frame IRQ not raised at the end of the 4-step sequence")
	}

	// Reading $4015 reports and clears it.
	if status := tb.read(0x4015); status&0x40 == 0 {
		t.Errorf("status = %02x, want frame IRQ bit", status)
	}
	if tb.cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Error("reading $4015 did not clear the frame IRQ")
	}
}

func TestFrameIRQInhibit(t *testing.T) {
	tb := newTestBench(t)

	tb.write(0x4017, 0x40) // 4-step, IRQ inhibited

	tb.cpu.step(2 * 29830)
	if tb.cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Fatal("frame IRQ raised while inhibited")
	}

	// Setting the inhibit flag also clears a pending IRQ.
	tb.write(0x4017, 0x00)
	tb.cpu.step(29840)
	if !tb.cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Fatal("frame IRQ not raised after inhibit cleared")
	}
	tb.write(0x4017, 0x40)
	if tb.cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Error("writing $4017 with bit 6 set did not clear the pending IRQ")
	}
}

func TestFiveStepModeNoIRQ(t *testing.T) {
	tb := newTestBench(t)

	tb.write(0x4017, 0x80) // 5-step

	tb.cpu.step(3 * 37282)
	if tb.cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Error("frame IRQ raised in 5-step mode")
	}
}

func TestFiveStepModeImmediateClock(t *testing.T) {
	tb := newTestBench(t)

	// Load a length counter, then switch to 5-step mode: the write
	// immediately clocks the half-frame units, so the counter drops by one
	// well before the first scheduled half frame.
	tb.write(0x4015, 0x01)
	tb.write(0x4000, 0x1F) // no halt
	tb.write(0x4002, 0xFD)
	tb.write(0x4003, 0x18) // length 2
	tb.apu.Run()
	tb.apu.Square1.reloadLengthCounter()

	tb.write(0x4017, 0x80)
	tb.cpu.step(10) // let the deferred $4017 value apply

	if got := tb.apu.Square1.envelope.length.value; got != 1 {
		t.Errorf("length counter = %d, want 1 after immediate half-frame clock", got)
	}
}

func TestFrameCounterWriteDelay(t *testing.T) {
	for name, precycles := range map[string]int{"even": 100, "odd": 101} {
		t.Run(name, func(t *testing.T) {
			tb := newTestBench(t)
			tb.cpu.step(precycles)

			tb.write(0x4017, 0x80)
			fc := &tb.apu.frameCounter
			if fc.newval != 0x80 {
				t.Fatalf("pending value = %d, want 0x80", fc.newval)
			}

			want := int8(3)
			if precycles&1 != 0 {
				want = 4
			}
			if fc.writeDelayCounter != want {
				t.Errorf("write delay = %d, want %d (%s write cycle)",
					fc.writeDelayCounter, want, name)
			}

			// The mode change must not be live yet...
			if fc.stepMode != 0 {
				t.Error("step mode switched before the deferred delay elapsed")
			}

			// ...but is after the delay has run its course.
			tb.cpu.step(int(want) + 1)
			if fc.stepMode != 1 {
				t.Error("step mode not switched after the deferred delay")
			}
		})
	}
}

func TestFrameCounterSchedules(t *testing.T) {
	// Event boundaries are part of the hardware contract.
	wantNTSC := [2][6]int32{
		{7457, 14913, 22371, 29828, 29829, 29830},
		{7457, 14913, 22371, 29829, 37281, 37282},
	}
	if stepCyclesNTSC != wantNTSC {
		t.Errorf("NTSC schedule = %v, want %v", stepCyclesNTSC, wantNTSC)
	}
	wantPAL := [2][6]int32{
		{8313, 16627, 24939, 33252, 33253, 33254},
		{8313, 16627, 24939, 33252, 41565, 41566},
	}
	if stepCyclesPAL != wantPAL {
		t.Errorf("PAL schedule = %v, want %v", stepCyclesPAL, wantPAL)
	}
}

func TestQuarterAndHalfFrameClocks(t *testing.T) {
	tb := newTestBench(t)

	// Envelope decays are clocked on quarter frames, length counters on
	// half frames only.
	tb.write(0x4015, 0x01)
	tb.write(0x4000, 0x07) // envelope mode, divider period 8, no halt
	tb.write(0x4002, 0xFD)
	tb.write(0x4003, 0x18) // length 2, restarts envelope

	tb.cpu.step(7500) // past the first quarter frame
	tb.apu.Run()
	if got := tb.apu.Square1.envelope.decay; got != 15 {
		t.Errorf("after first quarter frame: decay counter = %d, want 15", got)
	}
	lenAtQuarter := tb.apu.Square1.envelope.length.value
	if lenAtQuarter != 2 {
		t.Errorf("after first quarter frame: length = %d, want 2 (not clocked)", lenAtQuarter)
	}

	tb.cpu.step(7500) // past the first half frame
	tb.apu.Run()
	if got := tb.apu.Square1.envelope.length.value; got != 1 {
		t.Errorf("after first half frame: length = %d, want 1", got)
	}
}
