package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"interview-bot/internal/application"
	"interview-bot/internal/infra/audio"
)

// keyboardSource starts a recording each time the user presses Enter.
// Closing stdin ends the loop with io.EOF.
type keyboardSource struct {
	lines   chan error
	out     io.Writer
	capture application.AudioCapture
	context application.ContextProvider
}

func newKeyboardSource(in io.Reader, out io.Writer, capture application.AudioCapture, provider application.ContextProvider) *keyboardSource {
	k := &keyboardSource{
		lines:   make(chan error),
		out:     out,
		capture: capture,
		context: provider,
	}
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			k.lines <- nil
		}
		if err := scanner.Err(); err != nil {
			k.lines <- err
		}
		close(k.lines)
	}()
	return k
}

func (k *keyboardSource) Name() string {
	return "keyboard"
}

func (k *keyboardSource) Next(ctx context.Context) (application.Invocation, error) {
	fmt.Fprintln(k.out, "Press Enter and ask your question...")

	select {
	case <-ctx.Done():
		return application.Invocation{}, ctx.Err()
	case err, ok := <-k.lines:
		if !ok {
			return application.Invocation{}, io.EOF
		}
		if err != nil {
			return application.Invocation{}, fmt.Errorf("reading stdin: %w", err)
		}
	}

	fmt.Fprintln(k.out, "Listening...")
	return application.Invocation{Capture: k.capture, Context: k.context}, nil
}

// spoolSource turns each file dropped into the spool into an invocation.
type spoolSource struct {
	spool   *audio.Spool
	context application.ContextProvider
}

func newSpoolSource(spool *audio.Spool, provider application.ContextProvider) *spoolSource {
	return &spoolSource{spool: spool, context: provider}
}

func (s *spoolSource) Name() string {
	return s.spool.Name()
}

func (s *spoolSource) Next(ctx context.Context) (application.Invocation, error) {
	upload, err := s.spool.Next(ctx)
	if err != nil {
		return application.Invocation{}, err
	}
	return application.Invocation{Capture: upload, Context: s.context}, nil
}
