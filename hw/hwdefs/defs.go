package hwdefs

import "strings"

type IRQSource uint8

const (
	External IRQSource = 1 << iota
	FrameCounter
	DMC

	numSources = 3
)

var irqSrcNames = [numSources]string{
	"ext",
	"fcnt",
	"dmc",
}

func (irq IRQSource) String() string {
	var names []string
	for i := range numSources {
		if irq&(1<<i) != 0 {
			names = append(names, irqSrcNames[i])
		}
	}
	return strings.Join(names, "|")
}

const (
	SoftReset = true
	HardReset = false
)

const NumAudioChannels = 5 // Square1, Square2, Triangle, Noise, DMC

// Model selects the console revision being emulated. It drives the CPU (and
// so APU) clock rate and the period tables of the noise, DMC and frame
// counter units.
type Model uint8

const (
	NTSC Model = iota
	PAL
)

func (m Model) String() string {
	if m == PAL {
		return "PAL"
	}
	return "NTSC"
}

// CPU clock rates, in Hz.
const (
	ClockRateNTSC = 1789773
	ClockRatePAL  = 1662607
)

func (m Model) ClockRate() uint32 {
	if m == PAL {
		return ClockRatePAL
	}
	return ClockRateNTSC
}
