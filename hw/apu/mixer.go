package apu

import (
	"slices"

	"github.com/arl/blip"

	"rp2a03/hw/hwdefs"
	"rp2a03/hw/snapshot"
)

const MaxSampleRate = 96000
const maxSamplesPerFrame = MaxSampleRate / 60 * 4 * 2 //x4 to allow CPU overclocking up to 10x, x2 for panning stereo

// DefaultSampleRate is used unless the host configures another rate.
const DefaultSampleRate = 48000

// cycleLength is the number of CPU cycles accumulated before an audio frame
// is flushed to the sink. Sized to the mixer's per-cycle delta buffers, not
// to the video frame.
const cycleLength = 10000

// AudioSink receives the mixed PCM stream, one fixed cycle-budget frame at
// a time. Samples are interleaved stereo, nframes is the number of stereo
// frames. A sink that can't keep up drops samples; it must not block.
type AudioSink interface {
	Push(samples []int16, nframes int)
}

// Mixer accumulates the channels' amplitude deltas, folds them through the
// linear-weight mix and per-channel volume/panning, and band-limits the
// result into PCM through blip buffers.
type Mixer struct {
	outbuf   [maxSamplesPerFrame]int16
	bufleft  *blip.Buffer
	bufright *blip.Buffer

	prevOutleft  int16
	prevOutright int16

	hasPanning bool

	volumes [hwdefs.NumAudioChannels]float64
	panning [hwdefs.NumAudioChannels]float64

	// chanoutput is indexed by cycle; one extra slot because the flush
	// itself advances the channels to cycleLength, and a transition landing
	// exactly there is stamped cycleLength (blip folds it into the next
	// frame).
	timestamps []uint32
	chanoutput [hwdefs.NumAudioChannels][cycleLength + 1]int16
	curOutput  [hwdefs.NumAudioChannels]int16

	model      hwdefs.Model
	clockRate  uint32
	sampleRate uint32

	sink AudioSink
}

func NewMixer(sink AudioSink) *Mixer {
	am := &Mixer{
		bufleft:    blip.NewBuffer(maxSamplesPerFrame),
		bufright:   blip.NewBuffer(maxSamplesPerFrame),
		sampleRate: DefaultSampleRate,
		sink:       sink,
	}
	for i := range hwdefs.NumAudioChannels {
		am.volumes[i] = 1.0
		am.panning[i] = 1.0
	}
	am.updateRates(true)
	return am
}

func (am *Mixer) Reset() {
	am.prevOutleft = 0
	am.prevOutright = 0
	am.bufleft.Clear()
	am.bufright.Clear()
	am.timestamps = am.timestamps[:0]

	for i := range am.chanoutput {
		clear(am.chanoutput[i][:])
	}
	clear(am.curOutput[:])

	am.updateRates(true)
}

// SetSampleRate changes the host output rate. Takes effect at the next
// frame boundary.
func (am *Mixer) SetSampleRate(rate uint32) {
	if rate > MaxSampleRate {
		rate = MaxSampleRate
	}
	am.sampleRate = rate
	am.updateRates(true)
}

// SetVolume sets a channel's linear volume (1.0 = unity).
func (am *Mixer) SetVolume(ch Channel, volume float64) {
	am.volumes[ch] = volume
}

// SetPanning pans a channel: 1.0 is centered, 0 full left, 2.0 full right.
// Panning any channel off-center doubles the blip synthesis work, as the
// right channel gets its own buffer.
func (am *Mixer) SetPanning(ch Channel, panning float64) {
	am.panning[ch] = panning
	am.updatePanning()
}

func (am *Mixer) updatePanning() {
	hasPanning := false
	for i := range hwdefs.NumAudioChannels {
		if am.panning[i] != 1.0 {
			hasPanning = true
			break
		}
	}
	if hasPanning && !am.hasPanning {
		am.bufright.Clear()
		am.prevOutright = am.prevOutleft
	}
	am.hasPanning = hasPanning
}

func (am *Mixer) setModel(model hwdefs.Model) {
	am.model = model
	am.updateRates(false)
}

func (am *Mixer) updateRates(forceUpdate bool) {
	clockRate := am.model.ClockRate()
	if forceUpdate || am.clockRate != clockRate {
		am.clockRate = clockRate

		am.bufleft.SetRates(float64(am.clockRate), float64(am.sampleRate))
		am.bufright.SetRates(float64(am.clockRate), float64(am.sampleRate))
	}
}

func (am *Mixer) channelOutput(ch Channel, right bool) float64 {
	if right {
		return float64(am.curOutput[ch]) * am.volumes[ch] * am.panning[ch]
	}
	return float64(am.curOutput[ch]) * am.volumes[ch] * (2.0 - am.panning[ch])
}

// Per-channel weights of the linear approximation of the hardware's
// non-linear DAC mix.
const (
	pulseWeight    = 0.00752
	triangleWeight = 0.00851
	noiseWeight    = 0.00494
	dmcWeight      = 0.00335
)

// outputLevel folds the current channel DAC levels through the linear
// mixer approximation, scaled to signed 16-bit. At unity volume and
// centered panning the worst case (all channels maxed) sums to ~0.85, so the
// scaled value fits; volumes above 1.0 or off-center panning scale the sum
// up and can exceed the int16 range.
func (am *Mixer) outputLevel(isRight bool) int16 {
	pulseMix := pulseWeight * (am.channelOutput(Square1, isRight) + am.channelOutput(Square2, isRight))
	tndMix := triangleWeight*am.channelOutput(Triangle, isRight) +
		noiseWeight*am.channelOutput(Noise, isRight) +
		dmcWeight*am.channelOutput(DPCM, isRight)

	return int16((pulseMix + tndMix) * 32767)
}

// AddDelta records an amplitude transition of a channel at the given cycle.
func (am *Mixer) AddDelta(ch Channel, time uint32, delta int16) {
	if delta != 0 {
		am.timestamps = append(am.timestamps, time)
		am.chanoutput[ch][time] += delta
	}
}

// playAudioBuffer ends the frame at the given cycle and pushes the
// resampled PCM block to the sink.
func (am *Mixer) playAudioBuffer(time uint32) {
	am.endFrame(time)

	out := am.outbuf[:]
	sampleCount := am.bufleft.ReadSamples(out, maxSamplesPerFrame/2, blip.Stereo)

	if am.hasPanning {
		am.bufright.ReadSamples(out[1:], sampleCount, blip.Stereo)
	} else {
		// When no panning, just copy the left channel to the right one.
		for i := 0; i < sampleCount*2; i += 2 {
			out[i+1] = out[i]
		}
	}

	if am.sink != nil {
		am.sink.Push(out[:sampleCount*2], sampleCount)
	}

	am.updateRates(false)
}

func (am *Mixer) endFrame(time uint32) {
	// Remove duplicates.
	slices.Sort(am.timestamps)
	am.timestamps = slices.Compact(am.timestamps)

	for _, stamp := range am.timestamps {
		for j := range hwdefs.NumAudioChannels {
			am.curOutput[j] += am.chanoutput[j][stamp]
		}

		currentOut := am.outputLevel(false)
		am.bufleft.AddDelta(uint64(stamp), int32(currentOut-am.prevOutleft))
		am.prevOutleft = currentOut

		if am.hasPanning {
			currentOut = am.outputLevel(true)
			am.bufright.AddDelta(uint64(stamp), int32(currentOut-am.prevOutright))
			am.prevOutright = currentOut
		}
	}

	am.bufleft.EndFrame(int(time))
	if am.hasPanning {
		am.bufright.EndFrame(int(time))
	}

	// Reset everything.
	am.timestamps = am.timestamps[:0]
	for i := range am.chanoutput {
		clear(am.chanoutput[i][:])
	}
}

func (am *Mixer) saveState(state *snapshot.APUMixer) {
	state.ClockRate = am.clockRate
	state.SampleRate = am.sampleRate
	state.PreviousOutputLeft = am.prevOutleft
	state.PreviousOutputRight = am.prevOutright
	state.CurrentOutput = am.curOutput
}

func (am *Mixer) setState(state *snapshot.APUMixer) {
	am.sampleRate = state.SampleRate

	am.Reset()

	am.prevOutleft = state.PreviousOutputLeft
	am.prevOutright = state.PreviousOutputRight
	am.curOutput = state.CurrentOutput
}
