package apu

import (
	"testing"

	"rp2a03/hw/hwdefs"
)

func TestMixerDeltasProduceSamples(t *testing.T) {
	sink := &captureSink{}
	am := NewMixer(sink)
	am.setModel(hwdefs.NTSC)

	// A square-ish wave on channel square1: toggle between 0 and 15 every
	// 1000 cycles.
	level := int16(0)
	for cycle := uint32(0); cycle < cycleLength; cycle += 1000 {
		next := int16(15) - level
		am.AddDelta(Square1, cycle, next-level)
		level = next
	}

	am.playAudioBuffer(cycleLength)

	if sink.pushes != 1 {
		t.Fatalf("pushes = %d, want 1", sink.pushes)
	}
	if got := maxAbs(sink.samples); got == 0 {
		t.Fatal("no audio from mixer deltas")
	}

	// Interleaved stereo with centered panning: left == right.
	for i := 0; i+1 < len(sink.samples); i += 2 {
		if sink.samples[i] != sink.samples[i+1] {
			t.Fatalf("sample %d: left %d != right %d", i/2, sink.samples[i], sink.samples[i+1])
		}
	}
}

func TestMixerLinearWeights(t *testing.T) {
	am := NewMixer(nil)

	// The mix is the linear weighted sum of the channel DAC levels:
	// 0.00752 per pulse unit, 0.00851 triangle, 0.00494 noise, 0.00335
	// DMC, scaled to signed 16-bit.
	am.curOutput = [5]int16{15, 15, 15, 15, 127}
	weighted := 0.00752*(15+15) + 0.00851*15 + 0.00494*15 + 0.00335*127
	want := int16(weighted * 32767)
	if got := am.outputLevel(false); got < want-1 || got > want+1 {
		t.Errorf("outputLevel = %d, want %d (±1)", got, want)
	}

	// Each weight in isolation.
	weights := []struct {
		ch     Channel
		weight float64
	}{
		{Square1, 0.00752},
		{Square2, 0.00752},
		{Triangle, 0.00851},
		{Noise, 0.00494},
		{DPCM, 0.00335},
	}
	for _, w := range weights {
		am.curOutput = [5]int16{}
		am.curOutput[w.ch] = 10
		want := int16(w.weight * 10 * 32767)
		if got := am.outputLevel(false); got != want {
			t.Errorf("%v alone: outputLevel = %d, want %d", w.ch, got, want)
		}
	}
}

func TestMixerZeroDeltasAreDropped(t *testing.T) {
	sink := &captureSink{}
	am := NewMixer(sink)

	am.AddDelta(Square1, 100, 0)
	if len(am.timestamps) != 0 {
		t.Error("zero delta recorded a timestamp")
	}
}

func TestMixerVolumeScalesOutput(t *testing.T) {
	loud := &captureSink{}
	am := NewMixer(loud)
	am.AddDelta(Triangle, 0, 15)
	am.playAudioBuffer(cycleLength)

	quiet := &captureSink{}
	am2 := NewMixer(quiet)
	am2.SetVolume(Triangle, 0.1)
	am2.AddDelta(Triangle, 0, 15)
	am2.playAudioBuffer(cycleLength)

	if maxAbs(quiet.samples) >= maxAbs(loud.samples) {
		t.Errorf("volume 0.1 (max %d) not quieter than unity (max %d)",
			maxAbs(quiet.samples), maxAbs(loud.samples))
	}
}

func TestMixerPanning(t *testing.T) {
	sink := &captureSink{}
	am := NewMixer(sink)
	am.SetPanning(Square1, 0.2) // mostly left

	am.AddDelta(Square1, 0, 15)
	am.playAudioBuffer(cycleLength)

	var left, right int
	for i := 0; i+1 < len(sink.samples); i += 2 {
		l, r := int(sink.samples[i]), int(sink.samples[i+1])
		if l < 0 {
			l = -l
		}
		if r < 0 {
			r = -r
		}
		left += l
		right += r
	}
	if left <= right {
		t.Errorf("panned left but left energy %d <= right energy %d", left, right)
	}
}

func TestMixerSampleRate(t *testing.T) {
	sink := &captureSink{}
	am := NewMixer(sink)
	am.setModel(hwdefs.NTSC)
	am.SetSampleRate(48000)

	am.AddDelta(Square1, 0, 15)
	am.playAudioBuffer(cycleLength)

	// 10000 CPU cycles at ~1.79MHz resampled to 48kHz is ~268 samples.
	frames := len(sink.samples) / 2
	if frames < 250 || frames > 290 {
		t.Errorf("got %d frames for one cycle budget at 48kHz, want ~268", frames)
	}
}
