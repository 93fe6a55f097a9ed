package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"interview-bot/internal/domain"
	"interview-bot/internal/fsm"
)

// Invocation carries everything one question needs. Nothing is shared
// between invocations except what the caller chooses to pass in.
type Invocation struct {
	ID      string
	Capture AudioCapture
	Context ContextProvider
}

type Result struct {
	ID         string
	Transcript domain.Transcript
	Answer     domain.Answer
	Audio      domain.SynthesizedAudio
	States     []fsm.State
}

type Pipeline struct {
	stt      Transcriber
	answers  AnswerGenerator
	speaker  Speaker
	observer Observer
	logger   *slog.Logger
}

// NewPipeline wires the stages. A nil speaker disables synthesis.
func NewPipeline(
	stt Transcriber,
	answers AnswerGenerator,
	speaker Speaker,
	observer Observer,
	logger *slog.Logger,
) *Pipeline {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Pipeline{
		stt:      stt,
		answers:  answers,
		speaker:  speaker,
		observer: observer,
		logger:   logger,
	}
}

// Run answers one question. The first failure aborts the invocation and is
// returned classified; a synthesis failure still returns the answer text.
func (p *Pipeline) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}

	logger := p.logger.With("invocation", inv.ID)
	machine := fsm.New()
	result := &Result{ID: inv.ID}
	start := time.Now()

	err := p.run(ctx, inv, machine, result, logger)
	if err != nil {
		if ferr := machine.Fire(fsm.EventAbort); ferr != nil {
			logger.Error("aborting invocation", "error", ferr)
		}
		logger.Warn("invocation aborted",
			"kind", domain.KindOf(err),
			"error", err,
		)
	}

	result.States = machine.History()
	p.observer.InvocationDone(time.Since(start), err)
	return result, err
}

func (p *Pipeline) run(ctx context.Context, inv Invocation, machine *fsm.Machine, result *Result, logger *slog.Logger) error {
	if inv.Capture == nil {
		return domain.Classify(domain.KindCapture, "capturing audio", errors.New("no capture strategy configured"))
	}
	if err := machine.Fire(fsm.EventStart); err != nil {
		return err
	}

	logger.Info("capturing audio", "strategy", inv.Capture.Name())
	var sample domain.AudioSample
	err := p.stage(StageCapture, func() error {
		var err error
		sample, err = inv.Capture.Capture(ctx)
		return domain.Classify(domain.KindCapture, "capturing audio", err)
	})
	if err != nil {
		return err
	}
	logger.Info("captured audio",
		"bytes", len(sample.PCM),
		"duration", sample.Duration(),
		"sample_rate", sample.Format.SampleRate,
	)
	if err := machine.Fire(fsm.EventCaptured); err != nil {
		return err
	}

	err = p.stage(StageTranscribe, func() error {
		var err error
		result.Transcript, err = p.stt.Transcribe(ctx, sample)
		if err == nil && result.Transcript.Empty() {
			err = domain.ErrUnintelligible
		}
		return classifyRecognition(err)
	})
	if err != nil {
		return err
	}
	logger.Info("transcribed", "text", result.Transcript)
	if err := machine.Fire(fsm.EventTranscribed); err != nil {
		return err
	}

	var bg domain.BackgroundContext
	err = p.stage(StageContext, func() error {
		if inv.Context == nil {
			return domain.Classify(domain.KindContextRead, "loading context", domain.ErrContextNotFound)
		}
		var err error
		bg, err = inv.Context.Load(ctx)
		return domain.Classify(domain.KindContextRead, "loading context", err)
	})
	if err != nil {
		return err
	}
	logger.Debug("loaded background context", "source", bg.Source, "chars", len(bg.Text))

	err = p.stage(StageGenerate, func() error {
		var err error
		result.Answer, err = p.answers.Generate(ctx, result.Transcript, bg)
		return domain.Classify(domain.KindGenerationService, "generating answer", err)
	})
	if err != nil {
		return err
	}
	logger.Info("generated answer", "chars", len(result.Answer))
	if err := machine.Fire(fsm.EventGenerated); err != nil {
		return err
	}

	if p.speaker != nil {
		err = p.stage(StageSynthesize, func() error {
			audio, err := p.speaker.Synthesize(ctx, result.Answer)
			if err == nil && audio.Empty() {
				err = errors.New("synthesizer returned no audio")
			}
			if err != nil {
				return domain.Classify(domain.KindSynthesisService, "synthesizing speech", err)
			}
			result.Audio = audio
			return nil
		})
		if err != nil {
			return err
		}
		logger.Info("synthesized speech", "bytes", len(result.Audio.Data), "mime", result.Audio.MIMEType)
	}

	return machine.Fire(fsm.EventSynthesized)
}

func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.observer.StageDone(name, time.Since(start), err)
	return err
}

func classifyRecognition(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrUnintelligible) {
		return domain.Classify(domain.KindUnintelligible, "transcribing", err)
	}
	return domain.Classify(domain.KindRecognitionService, "transcribing", err)
}

// InvocationSource blocks until the user triggers the next question.
type InvocationSource interface {
	Next(ctx context.Context) (Invocation, error)
	Name() string
}

type ResultHandler func(ctx context.Context, result *Result, err error)

// Loop runs one invocation per trigger until ctx is done. Failures are
// handed to handle and never end the loop.
func (p *Pipeline) Loop(ctx context.Context, source InvocationSource, handle ResultHandler) error {
	p.logger.Info("waiting for questions", "source", source.Name())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		inv, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("waiting for next question: %w", err)
		}

		result, err := p.Run(ctx, inv)
		handle(ctx, result, err)
	}
}
