package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Player plays an encoded audio clip and returns when playback ends.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// CommandPlayer pipes audio into an external player such as mpg123 or ffplay.
type CommandPlayer struct {
	Name string
	Args []string
}

func (p CommandPlayer) Play(ctx context.Context, audio []byte) error {
	cmd := exec.CommandContext(ctx, p.Name, p.Args...)
	cmd.Stdin = bytes.NewReader(audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running player %s: %w: %s", p.Name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
