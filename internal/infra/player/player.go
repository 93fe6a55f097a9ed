// Package player plays synthesized audio through an external command.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"interview-bot/internal/domain"
)

const DefaultCommand = "mpg123"

var DefaultArgs = []string{"-q"}

type Player struct {
	command string
	args    []string
	tempDir string
	logger  *slog.Logger
}

// New builds a player that runs command with args followed by the path of
// a temporary file holding the audio. An empty command uses mpg123.
func New(command string, args []string, logger *slog.Logger) *Player {
	if command == "" {
		command = DefaultCommand
		args = DefaultArgs
	}
	return &Player{
		command: command,
		args:    args,
		logger:  logger,
	}
}

// WithTempDir places temporary audio files in dir instead of os.TempDir.
func (p *Player) WithTempDir(dir string) *Player {
	p.tempDir = dir
	return p
}

// Play blocks until playback finishes. The temporary file is removed on
// every return path.
func (p *Player) Play(ctx context.Context, audio domain.SynthesizedAudio) error {
	if audio.Empty() {
		return fmt.Errorf("no audio to play")
	}

	f, err := os.CreateTemp(p.tempDir, "answer-*"+audio.Extension())
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("removing temp audio", "path", path, "error", err)
		}
	}()

	if _, err := f.Write(audio.Data); err != nil {
		f.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	args := append(append([]string{}, p.args...), path)
	cmd := exec.CommandContext(ctx, p.command, args...)

	p.logger.Debug("playing audio", "command", p.command, "bytes", len(audio.Data))
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("running %s: %w: %s", p.command, err, out)
	}
	return nil
}
