package apu

import "testing"

func TestSweepNegateComplement(t *testing.T) {
	tb := newTestBench(t)

	// Same period and sweep setup on both channels: negate, shift 1.
	for _, base := range []uint16{0x4000, 0x4004} {
		tb.write(base+0, 0xBF)
		tb.write(base+1, 0x89) // enabled, period 0, negate, shift 1
		tb.write(base+2, 0x00)
		tb.write(base+3, 0x09) // period 0x100
	}

	sq1 := tb.apu.Square1.sweep.target
	sq2 := tb.apu.Square2.sweep.target

	// 0x100 - 0x80 = 0x80; square 1 uses ones' complement and lands one
	// lower.
	if want := uint32(0x7F); sq1 != want {
		t.Errorf("square1 sweep target = %#x, want %#x", sq1, want)
	}
	if want := uint32(0x80); sq2 != want {
		t.Errorf("square2 sweep target = %#x, want %#x", sq2, want)
	}
}

func TestSquareMuting(t *testing.T) {
	tb := newTestBench(t)

	tb.write(0x4015, 0x01)
	tb.write(0x4000, 0xBF)

	// Period below 8 mutes the channel.
	tb.write(0x4002, 0x07)
	tb.write(0x4003, 0x08)
	if !tb.apu.Square1.silenced() {
		t.Error("period 7: channel should be muted")
	}
	tb.stepFrame()
	if got := maxAbs(tb.sink.drain()); got != 0 {
		t.Errorf("period 7: max amplitude = %d, want silence", got)
	}

	// Sweep target above $7FF mutes the channel too (non-negated sweep).
	tb.write(0x4001, 0x81) // enabled, shift 1, no negate
	tb.write(0x4002, 0xFF)
	tb.write(0x4003, 0x0F) // period 0x7FF -> target 0x7FF + 0x3FF
	if target := tb.apu.Square1.sweep.target; target <= 0x7FF {
		t.Fatalf("sweep target = %#x, expected above $7FF", target)
	}
	if !tb.apu.Square1.silenced() {
		t.Error("sweep target above $7FF: channel should be muted")
	}

	// And a plain mid-range period is not muted.
	tb.write(0x4001, 0x00)
	tb.write(0x4002, 0xFD)
	tb.write(0x4003, 0x08)
	if tb.apu.Square1.silenced() {
		t.Error("period 0xFD: channel should not be muted")
	}
}

func TestSquareDutyMasks(t *testing.T) {
	// The four hardware patterns: 12.5%, 25%, 50%, inverted 25%. Step 7 is
	// the first one played after a $4003 write (the sequencer counts down
	// from 0).
	wantHigh := [4]int{1, 2, 4, 6}
	for duty, mask := range dutyMasks {
		high := 0
		for step := range uint8(8) {
			if mask>>step&1 != 0 {
				high++
			}
		}
		if high != wantHigh[duty] {
			t.Errorf("duty %d: %d high steps, want %d", duty, high, wantHigh[duty])
		}
	}

	// Duty 0 is high on step 7 only; duty 3 is duty 1 inverted.
	if dutyMasks[0] != 0x80 {
		t.Errorf("duty 0 mask = %02x, want 80", dutyMasks[0])
	}
	if dutyMasks[3] != ^dutyMasks[1] {
		t.Errorf("duty 3 mask = %02x, want inverse of duty 1 (%02x)", dutyMasks[3], ^dutyMasks[1])
	}
}

func TestSquareDutySequence(t *testing.T) {
	tb := newTestBench(t)

	tb.write(0x4015, 0x01)
	tb.write(0x4000, 0xBF) // duty 2, constant volume 15
	tb.write(0x4002, 0x10)
	tb.write(0x4003, 0x08)

	// With duty 2 the sequencer must spend half its steps high: sample the
	// output once per sequencer step over one full turn.
	period := int(tb.apu.Square1.clock.period) + 1
	high := 0
	for range 8 {
		tb.cpu.step(period)
		tb.apu.Run()
		if tb.apu.Square1.output() > 0 {
			high++
		}
	}
	if high != 4 {
		t.Errorf("duty 2: %d/8 steps high, want 4", high)
	}
}

func TestEnvelopeDecay(t *testing.T) {
	tb := newTestBench(t)

	tb.write(0x4015, 0x08)
	// Noise with envelope (not constant volume), period 0, no halt/loop.
	tb.write(0x400C, 0x00)
	tb.write(0x400E, 0x00)
	tb.write(0x400F, 0x08)

	env := &tb.apu.Noise.env
	env.length.commit()

	// First quarter tick handles the queued restart: decay reloads to 15.
	env.clock()
	if got := env.level(); got != 15 {
		t.Fatalf("after restart tick: envelope level = %d, want 15", got)
	}

	// With divider period volume+1 = 1, every following tick decrements.
	for want := 14; want >= 0; want-- {
		env.clock()
		if got := env.level(); int(got) != want {
			t.Fatalf("envelope decay: level = %d, want %d", got, want)
		}
	}

	// Without the loop flag the decay level stays at 0.
	env.clock()
	if got := env.level(); got != 0 {
		t.Errorf("after full decay: level = %d, want 0", got)
	}
}

func TestEnvelopeLoop(t *testing.T) {
	tb := newTestBench(t)

	tb.write(0x4015, 0x08)
	tb.write(0x400C, 0x20) // halt/loop set, envelope mode, divider period 1
	tb.write(0x400F, 0x08)

	env := &tb.apu.Noise.env
	env.length.commit()
	env.clock() // restart -> 15

	// Drain the decay, then one more tick must wrap it back to 15.
	for range 15 {
		env.clock()
	}
	if got := env.decay; got != 0 {
		t.Fatalf("decay = %d, want 0 before wrap", got)
	}
	env.clock()
	if got := env.decay; got != 15 {
		t.Errorf("decay = %d, want 15 (loop flag wraps)", got)
	}
}

func TestLengthCounterGating(t *testing.T) {
	tb := newTestBench(t)

	tb.write(0x4015, 0x01)
	tb.write(0x4000, 0x1F) // halt clear (bit 5 unset: length counts down)
	tb.write(0x4002, 0xFD)
	tb.write(0x4003, 0x18) // length index 3 -> 2 half-frame ticks

	lc := &tb.apu.Square1.envelope.length
	lc.commit()
	if lc.value != 2 {
		t.Fatalf("length counter = %d, want 2 (LUT index 3)", lc.value)
	}

	lc.clock()
	lc.clock()
	if lc.active() {
		t.Error("length counter should have reached zero")
	}

	// Saturates at zero.
	lc.clock()
	if lc.value != 0 {
		t.Errorf("length counter = %d, want 0 (no wrap)", lc.value)
	}

	// While disabled, loads are ignored and the counter is held at 0.
	lc.setEnabled(false)
	lc.writeLoad(0x18)
	lc.commit()
	if lc.value != 0 {
		t.Errorf("disabled length counter = %d, want 0", lc.value)
	}
}

func TestLengthCounterReloadRace(t *testing.T) {
	tb := newTestBench(t)

	tb.write(0x4015, 0x01)
	lc := &tb.apu.Square1.envelope.length

	// A load queued while the counter still holds its observed value
	// applies normally...
	lc.writeLoad(0x18) // -> 2
	lc.commit()
	if lc.value != 2 {
		t.Fatalf("length counter = %d, want 2", lc.value)
	}

	// ...but if a half-frame clock lands between the write and the commit,
	// the clocked value wins.
	lc.writeLoad(0x18)
	lc.clock() // value 2 -> 1, no longer what the load observed
	lc.commit()
	if lc.value != 1 {
		t.Errorf("length counter = %d, want 1 (racing clock wins over reload)", lc.value)
	}
}

func TestLengthCounterLUT(t *testing.T) {
	want := [32]uint8{
		10, 254, 20, 2, 40, 4, 80, 6,
		160, 8, 60, 10, 14, 12, 26, 14,
		12, 16, 24, 18, 48, 20, 96, 22,
		192, 24, 72, 26, 16, 28, 32, 30,
	}
	if lengthLUT != want {
		t.Errorf("length LUT = %v, want %v", lengthLUT, want)
	}
}
