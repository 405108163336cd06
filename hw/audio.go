// Package hw hosts the hardware-facing glue around the emulation cores: at
// present, the SDL audio device the APU mixer pushes its PCM stream to.
package hw

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"rp2a03/emu/log"
)

const (
	AudioFormat     = sdl.AUDIO_S16LSB
	AudioChannels   = 2
	AudioBufferSize = 4096
)

// maxQueuedBytes bounds the SDL audio queue. When the consumer stalls, the
// queue would otherwise grow without limit; excess frames are dropped
// instead (the emulation never blocks on audio).
const maxQueuedBytes = 256 * 1024

// AudioDevice is an apu.AudioSink backed by an SDL queueing audio device.
type AudioDevice struct {
	id sdl.AudioDeviceID
}

func OpenAudioDevice(sampleRate uint32) (*AudioDevice, error) {
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("audio init: %w", err)
	}

	want := sdl.AudioSpec{
		Freq:     int32(sampleRate),
		Format:   AudioFormat,
		Channels: AudioChannels,
		Samples:  AudioBufferSize,
	}
	var have sdl.AudioSpec
	id, err := sdl.OpenAudioDevice("", false, &want, &have, 0)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}

	log.ModEmu.InfoZ("audio device open").
		Int("freq", int(have.Freq)).
		Uint8("channels", have.Channels).
		End()

	return &AudioDevice{id: id}, nil
}

// Push queues one frame of interleaved stereo PCM. Frames past the queue
// bound are dropped.
func (d *AudioDevice) Push(samples []int16, nframes int) {
	if len(samples) == 0 {
		return
	}

	if sdl.GetQueuedAudioSize(d.id) > maxQueuedBytes {
		log.ModEmu.DebugZ("audio queue saturated, dropping frame").
			Int("nframes", nframes).
			End()
		return
	}

	// copy the buffer, sdl.QueueAudio keeps a reference until played.
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*2)
	cpy := make([]byte, len(buf))
	copy(cpy, buf)

	if err := sdl.QueueAudio(d.id, cpy); err != nil {
		log.ModEmu.DebugZ("failed to queue audio buffer").Error("err", err).End()
	}
}

// QueuedFrames reports the number of stereo frames waiting to be played.
func (d *AudioDevice) QueuedFrames() int {
	return int(sdl.GetQueuedAudioSize(d.id)) / (2 * AudioChannels)
}

// Resume starts playback (devices open paused).
func (d *AudioDevice) Resume() {
	sdl.PauseAudioDevice(d.id, false)
}

func (d *AudioDevice) Pause() {
	sdl.PauseAudioDevice(d.id, true)
}

func (d *AudioDevice) Close() {
	sdl.CloseAudioDevice(d.id)
	sdl.QuitSubSystem(sdl.INIT_AUDIO)
}
