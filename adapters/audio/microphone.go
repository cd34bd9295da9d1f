package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

// Recorder starts a raw PCM stream from an input device.
type Recorder interface {
	Start(ctx context.Context) (io.ReadCloser, error)
}

// CommandRecorder reads PCM from the stdout of an external recorder such as arecord or sox.
type CommandRecorder struct {
	Name string
	Args []string
}

func (r CommandRecorder) Start(ctx context.Context) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, r.Name, r.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("recorder stdout: %w", err)
	}
	stderr := &tailBuffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting recorder %s: %w", r.Name, err)
	}
	return &commandStream{ReadCloser: stdout, cmd: cmd, name: r.Name, stderr: stderr}, nil
}

// exitGrace bounds how long Close waits for a recorder that closed its output to exit.
const exitGrace = time.Second

type commandStream struct {
	io.ReadCloser
	cmd    *exec.Cmd
	name   string
	stderr *tailBuffer
	ended  bool
}

func (s *commandStream) Read(p []byte) (int, error) {
	n, err := s.ReadCloser.Read(p)
	if errors.Is(err, io.EOF) {
		s.ended = true
	}
	return n, err
}

// Close stops the recorder. A recorder still producing audio is killed and its exit status
// ignored; one that ended the stream on its own reports a failed exit as an error.
func (s *commandStream) Close() error {
	if !s.ended {
		_ = s.ReadCloser.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("recorder %s failed: %w: %s", s.name, err, s.stderr.String())
		}
		return nil
	case <-time.After(exitGrace):
		_ = s.cmd.Process.Kill()
		<-done
		return nil
	}
}

// tailBuffer keeps the last stderrLimit bytes a recorder writes.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

const stderrLimit = 1024

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > stderrLimit {
		b.buf = b.buf[len(b.buf)-stderrLimit:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(bytes.TrimSpace(b.buf))
}

// Microphone captures a single phrase: it starts the recorder, listens, then stops the recorder.
type Microphone struct {
	recorder Recorder
	listener *Listener
}

func NewMicrophone(recorder Recorder, listener *Listener) *Microphone {
	return &Microphone{recorder: recorder, listener: listener}
}

func (m *Microphone) Capture(ctx context.Context) ([]byte, error) {
	cfg := m.listener.Config()
	// Recorders that stall without producing audio are cut off on the wall clock.
	guard := cfg.Calibration + cfg.Timeout + cfg.PhraseLimit + 2*time.Second
	ctx, cancel := context.WithTimeout(ctx, guard)
	defer cancel()

	stream, err := m.recorder.Start(ctx)
	if err != nil {
		return nil, err
	}

	log.WithCtx(ctx).Debug("Microphone open, calibrating for ambient noise")
	pcm, err := m.listener.Listen(stream)
	closeErr := stream.Close()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("capturing audio: %w", ctx.Err())
		}
		// A recorder that dies early looks like a silent room to the listener.
		if closeErr != nil {
			log.WithCtx(ctx).Warn("Recorder exited abnormally", zap.Error(closeErr))
			return nil, closeErr
		}
		return nil, err
	}
	log.WithCtx(ctx).Debug("Phrase captured", zap.Int("bytes", len(pcm)))
	return pcm, nil
}
