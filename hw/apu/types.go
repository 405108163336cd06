package apu

import "rp2a03/hw/hwdefs"

type Channel uint8

const (
	Square1 Channel = iota
	Square2
	Triangle
	Noise
	DPCM
)

var channelNames = [hwdefs.NumAudioChannels]string{
	"square1", "square2", "triangle", "noise", "dpcm",
}

func (ch Channel) String() string {
	return channelNames[ch]
}

type mixer interface {
	AddDelta(ch Channel, time uint32, delta int16)
}

// cpu is the view the APU has of the CPU core: the shared IRQ line, the
// cycle parity used by several write-delay quirks, and the DMC sample DMA.
// StartDMCTransfer asks the CPU to halt (up to 4 cycles), fetch the byte at
// DMC.CurrentAddr() on the bus and hand it back through DMC.SetReadBuffer.
type cpu interface {
	HasIRQSource(src hwdefs.IRQSource) bool
	SetIRQSource(src hwdefs.IRQSource)
	ClearIRQSource(src hwdefs.IRQSource)
	CurrentCycle() uint32
	StartDMCTransfer()
	StopDMCTransfer()
}
