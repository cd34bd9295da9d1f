package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

const testRate = 1000 // 50 samples, 100 bytes per 50ms frame

func tone(d time.Duration, amplitude int16) []byte {
	n := int(int64(testRate) * int64(d) / int64(time.Second))
	buf := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(amplitude))
	}
	return buf
}

func stream(parts ...[]byte) io.Reader {
	return bytes.NewReader(bytes.Join(parts, nil))
}

func TestRMS(t *testing.T) {
	assert.Equal(t, 0.0, RMS(nil))
	assert.Equal(t, 0.0, RMS(tone(time.Second, 0)))
	assert.InDelta(t, 1000.0, RMS(tone(time.Second, 1000)), 0.001)
	assert.InDelta(t, 1000.0, RMS(tone(time.Second, -1000)), 0.001)
}

func TestCalibrateLowersThresholdInQuietRoom(t *testing.T) {
	l := NewListener(DefaultListenConfig(testRate))

	threshold, err := l.Calibrate(stream(tone(time.Second, 0)))

	require.NoError(t, err)
	assert.Less(t, threshold, 300.0)
	assert.Greater(t, threshold, 0.0)
}

func TestCalibrateRaisesThresholdInNoisyRoom(t *testing.T) {
	l := NewListener(DefaultListenConfig(testRate))

	threshold, err := l.Calibrate(stream(tone(time.Second, 2000)))

	require.NoError(t, err)
	assert.Greater(t, threshold, 300.0)
	assert.Less(t, threshold, 3000.0)
}

func TestListen(t *testing.T) {
	tests := []struct {
		name       string
		input      io.Reader
		wantErr    error
		wantFrames int
	}{
		{
			name:    "silence for the whole window",
			input:   stream(tone(time.Second, 0), tone(6*time.Second, 0)),
			wantErr: domain.ErrListenTimeout,
		},
		{
			name:    "stream ends before speech",
			input:   stream(tone(time.Second, 0), tone(time.Second, 0)),
			wantErr: domain.ErrListenTimeout,
		},
		{
			name: "phrase after a pause",
			input: stream(
				tone(time.Second, 0),
				tone(time.Second, 0),
				tone(500*time.Millisecond, 1000),
				tone(2*time.Second, 0),
			),
			// 10 frames of pre-roll ending in the first speech frame, 9 more speech frames, 16 frames of pause
			wantFrames: 35,
		},
		{
			name:       "phrase limit",
			input:      stream(tone(time.Second, 0), tone(40*time.Second, 1000)),
			wantFrames: 600,
		},
		{
			name:       "stream ends mid phrase",
			input:      stream(tone(time.Second, 0), tone(300*time.Millisecond, 1000)),
			wantFrames: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewListener(DefaultListenConfig(testRate))

			pcm, err := l.Listen(tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, pcm)
				return
			}
			require.NoError(t, err)
			assert.Len(t, pcm, tt.wantFrames*100)
		})
	}
}

type fakeRecorder struct {
	data   []byte
	err    error
	closed bool
}

func (f *fakeRecorder) Start(context.Context) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f, nil
}

func (f *fakeRecorder) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func (f *fakeRecorder) Close() error {
	f.closed = true
	return nil
}

func TestMicrophoneCapture(t *testing.T) {
	rec := &fakeRecorder{data: bytes.Join([][]byte{tone(time.Second, 0), tone(time.Second, 1500), tone(time.Second, 0)}, nil)}
	mic := NewMicrophone(rec, NewListener(DefaultListenConfig(testRate)))

	pcm, err := mic.Capture(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, pcm)
	assert.True(t, rec.closed)
}

func TestMicrophoneCaptureRecorderError(t *testing.T) {
	mic := NewMicrophone(&fakeRecorder{err: errors.New("no device")}, NewListener(DefaultListenConfig(testRate)))

	_, err := mic.Capture(context.Background())

	assert.EqualError(t, err, "no device")
}

func TestMicrophoneCaptureSilence(t *testing.T) {
	rec := &fakeRecorder{data: tone(7*time.Second, 0)}
	mic := NewMicrophone(rec, NewListener(DefaultListenConfig(testRate)))

	_, err := mic.Capture(context.Background())

	assert.ErrorIs(t, err, domain.ErrListenTimeout)
	assert.True(t, rec.closed)
}

func TestMicrophoneCaptureRecorderExits(t *testing.T) {
	tests := []struct {
		name        string
		recorder    CommandRecorder
		wantTimeout bool
		wantMsg     string
	}{
		{
			name:     "recorder fails at once",
			recorder: CommandRecorder{Name: "false"},
			wantMsg:  "exit status 1",
		},
		{
			name:     "recorder reports why",
			recorder: CommandRecorder{Name: "sh", Args: []string{"-c", "echo device busy >&2; exit 1"}},
			wantMsg:  "device busy",
		},
		{
			name:        "recorder ends cleanly without audio",
			recorder:    CommandRecorder{Name: "true"},
			wantTimeout: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mic := NewMicrophone(tt.recorder, NewListener(DefaultListenConfig(16000)))

			_, err := mic.Capture(context.Background())

			require.Error(t, err)
			if tt.wantTimeout {
				assert.ErrorIs(t, err, domain.ErrListenTimeout)
				return
			}
			assert.NotErrorIs(t, err, domain.ErrListenTimeout)
			assert.ErrorContains(t, err, tt.wantMsg)
		})
	}
}

func TestCommandRecorderKilledWhileStreaming(t *testing.T) {
	rec := CommandRecorder{Name: "sh", Args: []string{"-c", "while :; do printf abcd; done"}}

	rc, err := rec.Start(context.Background())
	require.NoError(t, err)
	_, err = io.ReadFull(rc, make([]byte, 64))
	require.NoError(t, err)

	assert.NoError(t, rc.Close())
}

func TestCommandRecorder(t *testing.T) {
	rec := CommandRecorder{Name: "sh", Args: []string{"-c", "printf abcd"}}

	rc, err := rec.Start(context.Background())
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	assert.Equal(t, "abcd", string(data))
}

func TestCommandPlayer(t *testing.T) {
	require.NoError(t, CommandPlayer{Name: "sh", Args: []string{"-c", "cat > /dev/null"}}.Play(context.Background(), []byte("mp3")))

	err := CommandPlayer{Name: "sh", Args: []string{"-c", "echo broken >&2; exit 3"}}.Play(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
