package snapshot

// Save-state containers for the APU subsystem. These are plain data
// mirrors of the emulation state: the emulation structs copy themselves in
// and out, the jx codec (json.go) moves them to and from disk.

type APU struct {
	Version   int
	Model     uint8
	CurCycle  uint32
	PrevCycle uint32

	Square1      APUSquare
	Square2      APUSquare
	Triangle     APUTriangle
	Noise        APUNoise
	DMC          APUDMC
	FrameCounter APUFrameCounter
	Mixer        APUMixer
}

type APUTimer struct {
	PreviousCycle uint32
	Timer         uint16
	Period        uint16
	LastOutput    int8
}

type APULengthCounter struct {
	Enabled       bool
	Halt          bool
	NewHalt       bool
	Counter       uint8
	ReloadValue   uint8
	PreviousValue uint8
}

type APUEnvelope struct {
	ConstantVolume bool
	Volume         uint8
	Start          bool
	Divider        int8
	Counter        uint8

	LengthCounter APULengthCounter
}

type APUSquare struct {
	Timer    APUTimer
	Envelope APUEnvelope

	Duty    uint8
	DutyPos uint8

	RealPeriod        uint16
	SweepEnabled      bool
	SweepPeriod       uint8
	SweepNegate       bool
	SweepShift        uint8
	ReloadSweep       bool
	SweepDivider      uint8
	SweepTargetPeriod uint32
}

type APUTriangle struct {
	Timer         APUTimer
	LengthCounter APULengthCounter

	LinearCounter       uint8
	LinearCounterReload uint8
	LinearReload        bool
	LinearCtrl          bool
	Pos                 uint8
}

type APUNoise struct {
	Timer    APUTimer
	Envelope APUEnvelope

	ShiftReg    uint16
	Mode        bool
	PeriodIndex uint8
}

type APUDMC struct {
	Timer APUTimer

	SampleAddr  uint16
	SampleLen   uint16
	OutputLevel uint8
	RateIndex   uint8
	IRQEnabled  bool
	Loop        bool

	CurrentAddr uint16
	Remaining   uint16
	ReadBuf     uint8
	BufEmpty    bool

	ShiftReg     uint8
	BitsLeft     uint8
	Silence      bool
	NeedToRun    bool
	StartDelay   uint8
	DisableDelay uint8
}

type APUFrameCounter struct {
	PrevCycle         int32
	CurStep           uint32
	StepMode          uint32
	InhibitIRQ        bool
	BlockTick         uint8
	NewVal            int16
	WriteDelayCounter int8
}

type APUMixer struct {
	ClockRate  uint32
	SampleRate uint32

	PreviousOutputLeft  int16
	PreviousOutputRight int16
	CurrentOutput       [5]int16
}
