package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-bot/internal/application"
	"interview-bot/internal/domain"
	"interview-bot/internal/fsm"
	"interview-bot/internal/infra/audio"
	"interview-bot/internal/infra/background"
)

type staticCapture struct {
	sample domain.AudioSample
	err    error
	calls  int
}

func (s *staticCapture) Name() string { return "static" }

func (s *staticCapture) Capture(_ context.Context) (domain.AudioSample, error) {
	s.calls++
	return s.sample, s.err
}

type mockSTT struct {
	text  domain.Transcript
	err   error
	calls int
}

func (m *mockSTT) Transcribe(_ context.Context, _ domain.AudioSample) (domain.Transcript, error) {
	m.calls++
	return m.text, m.err
}

type mockModel struct {
	reply   string
	err     error
	prompts []domain.Prompt
}

func (m *mockModel) Name() string { return "mock" }

func (m *mockModel) Complete(_ context.Context, prompt domain.Prompt) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

type mockSpeaker struct {
	audio   domain.SynthesizedAudio
	err     error
	answers []domain.Answer
}

func (m *mockSpeaker) Synthesize(_ context.Context, answer domain.Answer) (domain.SynthesizedAudio, error) {
	m.answers = append(m.answers, answer)
	if m.err != nil {
		return domain.SynthesizedAudio{}, m.err
	}
	return m.audio, nil
}

type recordingObserver struct {
	mu     sync.Mutex
	stages []string
	done   int
}

func (r *recordingObserver) StageDone(stage string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recordingObserver) InvocationDone(_ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
}

func speechSample() domain.AudioSample {
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = int16((i % 40) * 400)
	}
	return domain.NewAudioSample(samples, domain.DefaultAudioFormat())
}

func silentSample() domain.AudioSample {
	return domain.NewAudioSample(make([]int16, 16000), domain.DefaultAudioFormat())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeContextFile(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "info.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	return path
}

func TestPipeline_UploadHappyPath(t *testing.T) {
	upload := audio.NewUpload(speechSample().WAV())
	stt := &mockSTT{text: "what are your strengths"}
	model := &mockModel{reply: "  I ship reliable backend systems. I mentor engineers.  "}
	speaker := &mockSpeaker{audio: domain.SynthesizedAudio{Data: []byte("ID3mp3"), MIMEType: "audio/mpeg"}}
	observer := &recordingObserver{}

	pipeline := application.NewPipeline(stt, application.NewGenerator(model, 0), speaker, observer, discardLogger())

	result, err := pipeline.Run(context.Background(), application.Invocation{
		Capture: upload,
		Context: background.NewFileProvider(writeContextFile(t, "  I am a backend engineer.\n")),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, domain.Transcript("what are your strengths"), result.Transcript)
	assert.Equal(t, domain.Answer("I ship reliable backend systems. I mentor engineers."), result.Answer)
	assert.False(t, result.Audio.Empty())
	assert.Equal(t, []fsm.State{
		fsm.StateIdle,
		fsm.StateCapturing,
		fsm.StateTranscribing,
		fsm.StateGenerating,
		fsm.StateSynthesizing,
		fsm.StateIdle,
	}, result.States)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0].User, "I am a backend engineer.")
	assert.Contains(t, model.prompts[0].User, "what are your strengths")
	assert.Equal(t, []domain.Answer{result.Answer}, speaker.answers)
	assert.Equal(t, []string{
		application.StageCapture,
		application.StageTranscribe,
		application.StageContext,
		application.StageGenerate,
		application.StageSynthesize,
	}, observer.stages)
	assert.Equal(t, 1, observer.done)
}

func TestPipeline_MissingContextFileAbortsBeforeGeneration(t *testing.T) {
	stt := &mockSTT{text: "tell me about yourself"}
	model := &mockModel{reply: "unused"}
	speaker := &mockSpeaker{}

	pipeline := application.NewPipeline(stt, application.NewGenerator(model, 0), speaker, nil, discardLogger())

	result, err := pipeline.Run(context.Background(), application.Invocation{
		Capture: &staticCapture{sample: speechSample()},
		Context: application.SessionContext{
			Fallback: background.NewFileProvider(filepath.Join(t.TempDir(), "missing.txt")),
		},
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindContextRead, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrContextNotFound)
	assert.Equal(t, 1, stt.calls)
	assert.Empty(t, model.prompts)
	assert.Empty(t, speaker.answers)
	assert.True(t, result.Audio.Empty())
	assert.Equal(t, fsm.StateIdle, result.States[len(result.States)-1])
}

func TestPipeline_BlankContextFileAbortsBeforeGeneration(t *testing.T) {
	stt := &mockSTT{text: "how are you"}
	model := &mockModel{reply: "I am great."}

	pipeline := application.NewPipeline(stt, application.NewGenerator(model, 0), nil, nil, discardLogger())

	result, err := pipeline.Run(context.Background(), application.Invocation{
		Capture: &staticCapture{sample: speechSample()},
		Context: application.SessionContext{
			Fallback: background.NewFileProvider(writeContextFile(t, " \n\t\n")),
		},
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindContextRead, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrContextEmpty)
	assert.Empty(t, model.prompts)
	assert.True(t, result.Answer.Empty())
}

func TestPipeline_EmptySessionOverrideStillAnswers(t *testing.T) {
	model := &mockModel{reply: "I am great."}
	empty := ""

	pipeline := application.NewPipeline(&mockSTT{text: "how are you"}, application.NewGenerator(model, 0), nil, nil, discardLogger())

	result, err := pipeline.Run(context.Background(), application.Invocation{
		Capture: &staticCapture{sample: speechSample()},
		Context: application.SessionContext{
			Override: &empty,
			Fallback: background.NewFileProvider(writeContextFile(t, " \n")),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.Answer("I am great."), result.Answer)
	assert.Len(t, model.prompts, 1)
}

func TestPipeline_SilenceIsUnintelligible(t *testing.T) {
	stt := &mockSTT{text: "thank you"}
	model := &mockModel{reply: "unused"}
	speaker := &mockSpeaker{}

	gate := application.NewSilenceGate(stt, 500)
	pipeline := application.NewPipeline(gate, application.NewGenerator(model, 0), speaker, nil, discardLogger())

	_, err := pipeline.Run(context.Background(), application.Invocation{
		Capture: &staticCapture{sample: silentSample()},
		Context: application.SessionContext{Override: ptr("background")},
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindUnintelligible, domain.KindOf(err))
	assert.Zero(t, stt.calls)
	assert.Empty(t, model.prompts)
	assert.Empty(t, speaker.answers)
}

func TestPipeline_EmptyTranscriptIsUnintelligible(t *testing.T) {
	model := &mockModel{reply: "unused"}
	pipeline := application.NewPipeline(&mockSTT{text: "  "}, application.NewGenerator(model, 0), nil, nil, discardLogger())

	_, err := pipeline.Run(context.Background(), application.Invocation{
		Capture: &staticCapture{sample: speechSample()},
		Context: application.SessionContext{Override: ptr("background")},
	})

	assert.Equal(t, domain.KindUnintelligible, domain.KindOf(err))
	assert.Empty(t, model.prompts)
}

func TestPipeline_ErrorKinds(t *testing.T) {
	serviceDown := errors.New("connection refused")

	tests := []struct {
		name    string
		capture *staticCapture
		stt     *mockSTT
		model   *mockModel
		speaker *mockSpeaker
		want    domain.ErrorKind
	}{
		{
			name:    "capture failure",
			capture: &staticCapture{err: errors.New("device busy")},
			stt:     &mockSTT{text: "q"},
			model:   &mockModel{reply: "a"},
			want:    domain.KindCapture,
		},
		{
			name:    "recognition service failure",
			capture: &staticCapture{sample: speechSample()},
			stt:     &mockSTT{err: serviceDown},
			model:   &mockModel{reply: "a"},
			want:    domain.KindRecognitionService,
		},
		{
			name:    "generation failure",
			capture: &staticCapture{sample: speechSample()},
			stt:     &mockSTT{text: "q"},
			model:   &mockModel{err: serviceDown},
			want:    domain.KindGenerationService,
		},
		{
			name:    "empty completion",
			capture: &staticCapture{sample: speechSample()},
			stt:     &mockSTT{text: "q"},
			model:   &mockModel{reply: "\n"},
			want:    domain.KindGenerationService,
		},
		{
			name:    "synthesis failure",
			capture: &staticCapture{sample: speechSample()},
			stt:     &mockSTT{text: "q"},
			model:   &mockModel{reply: "a"},
			speaker: &mockSpeaker{err: serviceDown},
			want:    domain.KindSynthesisService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var speaker application.Speaker
			if tt.speaker != nil {
				speaker = tt.speaker
			}
			pipeline := application.NewPipeline(tt.stt, application.NewGenerator(tt.model, 0), speaker, nil, discardLogger())

			_, err := pipeline.Run(context.Background(), application.Invocation{
				Capture: tt.capture,
				Context: application.SessionContext{Override: ptr("background")},
			})
			require.Error(t, err)
			assert.Equal(t, tt.want, domain.KindOf(err))
		})
	}
}

func TestPipeline_SynthesisFailureKeepsAnswer(t *testing.T) {
	speaker := &mockSpeaker{err: errors.New("quota exceeded")}
	pipeline := application.NewPipeline(
		&mockSTT{text: "why us"},
		application.NewGenerator(&mockModel{reply: "Because I like hard problems."}, 0),
		speaker,
		nil,
		discardLogger(),
	)

	result, err := pipeline.Run(context.Background(), application.Invocation{
		Capture: &staticCapture{sample: speechSample()},
		Context: application.SessionContext{Override: ptr("background")},
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindSynthesisService, domain.KindOf(err))
	assert.Equal(t, domain.Answer("Because I like hard problems."), result.Answer)
	assert.True(t, result.Audio.Empty())
}

func TestPipeline_WithoutSpeakerEndsIdle(t *testing.T) {
	pipeline := application.NewPipeline(
		&mockSTT{text: "q"},
		application.NewGenerator(&mockModel{reply: "a"}, 0),
		nil,
		nil,
		discardLogger(),
	)

	result, err := pipeline.Run(context.Background(), application.Invocation{
		ID:      "fixed-id",
		Capture: &staticCapture{sample: speechSample()},
		Context: application.SessionContext{Override: ptr("bg")},
	})

	require.NoError(t, err)
	assert.Equal(t, "fixed-id", result.ID)
	assert.Equal(t, fsm.StateIdle, result.States[len(result.States)-1])
}

type queueSource struct {
	invocations []application.Invocation
}

func (q *queueSource) Name() string { return "queue" }

func (q *queueSource) Next(_ context.Context) (application.Invocation, error) {
	if len(q.invocations) == 0 {
		return application.Invocation{}, context.Canceled
	}
	inv := q.invocations[0]
	q.invocations = q.invocations[1:]
	return inv, nil
}

func TestPipeline_LoopHandlesEveryInvocation(t *testing.T) {
	pipeline := application.NewPipeline(
		&mockSTT{text: "q"},
		application.NewGenerator(&mockModel{reply: "a"}, 0),
		nil,
		nil,
		discardLogger(),
	)

	source := &queueSource{invocations: []application.Invocation{
		{Capture: &staticCapture{sample: speechSample()}, Context: application.SessionContext{Override: ptr("bg")}},
		{Capture: &staticCapture{err: errors.New("unplugged")}, Context: application.SessionContext{Override: ptr("bg")}},
	}}

	var kinds []domain.ErrorKind
	err := pipeline.Loop(context.Background(), source, func(_ context.Context, _ *application.Result, err error) {
		kinds = append(kinds, domain.KindOf(err))
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []domain.ErrorKind{"", domain.KindCapture}, kinds)
}

func ptr(s string) *string { return &s }
