package apu

import "rp2a03/hw/snapshot"

// sequenceClock is the divider driving a channel's sequencer. It consumes
// CPU cycles lazily: advance moves it from its cursor up to a target cycle
// in one call, invoking tick once per expiry (every period+1 cycles).
type sequenceClock struct {
	cursor    uint32 // cycle the clock has consumed up to
	countdown uint16
	period    uint16
}

func (c *sequenceClock) advance(to uint32, tick func()) {
	span := to - c.cursor
	for span > uint32(c.countdown) {
		span -= uint32(c.countdown) + 1
		c.cursor += uint32(c.countdown) + 1
		c.countdown = c.period
		tick()
	}
	c.countdown -= uint16(span)
	c.cursor = to
}

func (c *sequenceClock) reset() {
	c.cursor = 0
	c.countdown = 0
	c.period = 0
}

// rebase realigns the cursor with the start of a new audio frame.
func (c *sequenceClock) rebase() {
	c.cursor = 0
}

func (c *sequenceClock) saveState(state *snapshot.APUTimer) {
	state.PreviousCycle = c.cursor
	state.Timer = c.countdown
	state.Period = c.period
}

func (c *sequenceClock) setState(state *snapshot.APUTimer) {
	c.cursor = state.PreviousCycle
	c.countdown = state.Timer
	c.period = state.Period
}

// channelDAC tracks the level a channel last presented to the mixer. Only
// transitions are forwarded, as cycle-stamped deltas; a channel that holds
// its level costs nothing.
type channelDAC struct {
	channel Channel
	mixer   mixer
	level   int8
}

func (o *channelDAC) set(level int8, cycle uint32) {
	if level == o.level {
		return
	}
	o.mixer.AddDelta(o.channel, cycle, int16(level-o.level))
	o.level = level
}

func (o *channelDAC) reset() {
	o.level = 0
}

func (o *channelDAC) saveState(state *snapshot.APUTimer) {
	state.LastOutput = o.level
}

func (o *channelDAC) setState(state *snapshot.APUTimer) {
	o.level = state.LastOutput
}
