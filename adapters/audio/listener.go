package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

// ListenConfig tunes phrase detection. Durations are measured in audio time, not wall time.
type ListenConfig struct {
	SampleRate      int
	FrameDuration   time.Duration
	Calibration     time.Duration
	Timeout         time.Duration
	PauseThreshold  time.Duration
	PreRoll         time.Duration
	PhraseLimit     time.Duration
	EnergyThreshold float64
	// DynamicDamping controls how fast the threshold follows ambient energy during calibration.
	DynamicDamping float64
	// DynamicRatio is how far above ambient energy speech has to be.
	DynamicRatio float64
}

func DefaultListenConfig(sampleRate int) ListenConfig {
	return ListenConfig{
		SampleRate:      sampleRate,
		FrameDuration:   50 * time.Millisecond,
		Calibration:     time.Second,
		Timeout:         5 * time.Second,
		PauseThreshold:  800 * time.Millisecond,
		PreRoll:         500 * time.Millisecond,
		PhraseLimit:     30 * time.Second,
		EnergyThreshold: 300,
		DynamicDamping:  0.15,
		DynamicRatio:    1.5,
	}
}

// Listener extracts one phrase from a 16-bit little-endian mono PCM stream.
type Listener struct {
	cfg ListenConfig
}

func NewListener(cfg ListenConfig) *Listener {
	return &Listener{cfg: cfg}
}

func (l *Listener) Config() ListenConfig { return l.cfg }

func (l *Listener) frameBytes() int {
	samples := int(int64(l.cfg.SampleRate) * int64(l.cfg.FrameDuration) / int64(time.Second))
	if samples < 1 {
		samples = 1
	}
	return samples * 2
}

func (l *Listener) frames(d time.Duration) int {
	n := int(d / l.cfg.FrameDuration)
	if d%l.cfg.FrameDuration != 0 {
		n++
	}
	return n
}

// Calibrate adjusts the threshold to the ambient noise found in the next Calibration worth of audio.
func (l *Listener) Calibrate(r io.Reader) (float64, error) {
	threshold := l.cfg.EnergyThreshold
	frame := make([]byte, l.frameBytes())
	damping := math.Pow(l.cfg.DynamicDamping, l.cfg.FrameDuration.Seconds())

	for i := 0; i < l.frames(l.cfg.Calibration); i++ {
		if _, err := io.ReadFull(r, frame); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return threshold, err
		}
		target := RMS(frame) * l.cfg.DynamicRatio
		threshold = threshold*damping + target*(1-damping)
	}
	return threshold, nil
}

// Listen calibrates, waits up to Timeout for speech to start and returns the phrase audio.
// Silence or end of stream before any speech yields domain.ErrListenTimeout.
func (l *Listener) Listen(r io.Reader) ([]byte, error) {
	threshold, err := l.Calibrate(r)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, l.frameBytes())
	preRollFrames := max(l.frames(l.cfg.PreRoll), 1)
	preRoll := make([][]byte, 0, preRollFrames)
	waitFrames := l.frames(l.cfg.Timeout)

	started := false
	for i := 0; i < waitFrames; i++ {
		if _, err := io.ReadFull(r, frame); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, domain.ErrListenTimeout
			}
			return nil, err
		}
		chunk := append([]byte(nil), frame...)
		if len(preRoll) == preRollFrames {
			preRoll = preRoll[1:]
		}
		preRoll = append(preRoll, chunk)
		if RMS(chunk) > threshold {
			started = true
			break
		}
	}
	if !started {
		return nil, domain.ErrListenTimeout
	}

	var phrase []byte
	for _, chunk := range preRoll {
		phrase = append(phrase, chunk...)
	}

	pauseFrames := l.frames(l.cfg.PauseThreshold)
	limitFrames := l.frames(l.cfg.PhraseLimit)
	silent := 0
	for n := 1; n < limitFrames; n++ {
		if _, err := io.ReadFull(r, frame); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, err
		}
		phrase = append(phrase, frame...)
		if RMS(frame) > threshold {
			silent = 0
			continue
		}
		silent++
		if silent >= pauseFrames {
			break
		}
	}
	return phrase, nil
}

// RMS is the root mean square of 16-bit little-endian samples.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
