package application

import "time"

const (
	StageCapture    = "capture"
	StageTranscribe = "transcribe"
	StageContext    = "context"
	StageGenerate   = "generate"
	StageSynthesize = "synthesize"
)

// Observer receives timings for every stage and invocation.
type Observer interface {
	StageDone(stage string, elapsed time.Duration, err error)
	InvocationDone(elapsed time.Duration, err error)
}

type NoopObserver struct{}

func (NoopObserver) StageDone(string, time.Duration, error) {}

func (NoopObserver) InvocationDone(time.Duration, error) {}
