package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"interview-bot/config"
	"interview-bot/internal/application"
	"interview-bot/internal/domain"
	"interview-bot/internal/infra"
	"interview-bot/internal/infra/anthropic"
	"interview-bot/internal/infra/audio"
	"interview-bot/internal/infra/background"
	"interview-bot/internal/infra/gemini"
	"interview-bot/internal/infra/gtts"
	"interview-bot/internal/infra/httpapi"
	"interview-bot/internal/infra/openai"
	"interview-bot/internal/infra/player"
	"interview-bot/internal/metrics"
	"interview-bot/internal/session"
)

const usage = `usage: interviewbot [flags] <command> [args]

commands:
  serve              run the HTTP API
  listen             answer questions from the microphone, one per Enter key
  ask <file.wav>     answer a single recorded question
  watch [-dir path]  answer every .wav file dropped into a directory

flags:
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	backgroundText := flag.String("background", "", "background context for this run, overriding the context file")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	var override *string
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "background" {
			override = backgroundText
		}
	})

	app, err := newApp(cfg, override, logger)
	if err != nil {
		logger.Error("building pipeline", "error", err)
		os.Exit(1)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "serve":
		err = app.serve(ctx)
	case "listen":
		err = app.listen(ctx)
	case "ask":
		if len(args) != 1 {
			flag.Usage()
			os.Exit(2)
		}
		err = app.ask(ctx, args[0])
	case "watch":
		fs := flag.NewFlagSet("watch", flag.ExitOnError)
		dir := fs.String("dir", cfg.Capture.SpoolDir, "directory to watch for .wav files")
		fs.Parse(args)
		err = app.watch(ctx, *dir)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	pipeline *application.Pipeline
	recorder *metrics.Recorder
	fallback *background.FileProvider
	override *string
	player   *player.Player
	logger   *slog.Logger
}

func newApp(cfg *config.Config, override *string, logger *slog.Logger) (*app, error) {
	retry := infra.RetryConfigWithAttempts(cfg.Retry.MaxAttempts)
	openaiOpts := []openai.Option{
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithRetry(retry),
	}

	whisper := openai.NewWhisperClient(cfg.OpenAI.APIKey, cfg.OpenAI.Language, openaiOpts...)
	stt := application.NewSilenceGate(whisper, cfg.Capture.SilenceLevel)

	model, err := createLanguageModel(cfg, retry, openaiOpts)
	if err != nil {
		return nil, err
	}
	generator := application.NewGenerator(model, cfg.Generator.MaxBackgroundChars)

	speaker := createSpeaker(cfg, retry, openaiOpts)

	recorder := metrics.NewRecorder()

	a := &app{
		cfg:      cfg,
		pipeline: application.NewPipeline(stt, generator, speaker, recorder, logger),
		recorder: recorder,
		fallback: background.NewFileProvider(cfg.Context.File),
		override: override,
		logger:   logger,
	}
	if cfg.Player.Enabled && speaker != nil {
		a.player = player.New(cfg.Player.Command, cfg.Player.Args, logger)
	}

	logger.Info("pipeline ready",
		"generator", model.Name(),
		"speaker", cfg.Speaker.Provider,
		"context_file", a.fallback.Path(),
	)
	return a, nil
}

func createLanguageModel(cfg *config.Config, retry infra.RetryConfig, openaiOpts []openai.Option) (application.LanguageModel, error) {
	switch cfg.Generator.Provider {
	case "openai":
		return openai.NewChatClient(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel, openaiOpts...), nil
	case "anthropic":
		return anthropic.NewClaudeClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model).WithRetry(retry), nil
	case "gemini":
		return gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model).WithRetry(retry), nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Generator.Provider)
	}
}

func createSpeaker(cfg *config.Config, retry infra.RetryConfig, openaiOpts []openai.Option) application.Speaker {
	switch cfg.Speaker.Provider {
	case "gtts":
		return gtts.NewClient(cfg.Speaker.Language).WithRetry(retry)
	case "none":
		return nil
	default:
		return openai.NewSpeechClient(cfg.OpenAI.APIKey, cfg.OpenAI.SpeechModel, cfg.OpenAI.Voice, openaiOpts...)
	}
}

func createDevice(cfg config.CaptureConfig, logger *slog.Logger) audio.Device {
	switch cfg.Device {
	case "portaudio":
		return audio.NewPortAudioDevice(logger)
	default:
		return audio.NewPulseDevice(cfg.PulseSource)
	}
}

func createCapture(cfg config.CaptureConfig, logger *slog.Logger) (application.AudioCapture, error) {
	device := createDevice(cfg, logger)
	format := domain.DefaultAudioFormat()
	format.SampleRate = cfg.SampleRate

	switch cfg.Mode {
	case "fixed":
		fixed, err := audio.NewFixedDuration(device, format, cfg.FixedDuration)
		if err != nil {
			return nil, err
		}
		return fixed, nil
	default:
		return audio.NewSilenceTerminated(device, audio.SilenceOptions{
			Format:         format,
			PauseThreshold: cfg.PauseThreshold,
			MaxDuration:    cfg.MaxDuration,
			SilenceLevel:   cfg.SilenceLevel,
		}, logger), nil
	}
}

// contextProvider applies the -background override, if any, to the file.
func (a *app) contextProvider() application.ContextProvider {
	return application.SessionContext{Override: a.override, Fallback: a.fallback}
}

func (a *app) serve(ctx context.Context) error {
	store := session.NewStore(a.cfg.Context.MaxSessions, a.cfg.Context.SessionTTL)
	server := httpapi.NewServer(
		httpapi.Options{
			Addr:           a.cfg.HTTP.Addr,
			AuthToken:      a.cfg.HTTP.AuthToken,
			RequestsPerMin: a.cfg.HTTP.RequestsPerMin,
			WriteTimeout:   a.cfg.HTTP.WriteTimeout,
		},
		a.pipeline,
		store,
		a.fallback,
		a.recorder.Handler(),
		a.logger,
	)

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	<-ctx.Done()
	if err := server.Stop(); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	return ctx.Err()
}

func (a *app) listen(ctx context.Context) error {
	capture, err := createCapture(a.cfg.Capture, a.logger)
	if err != nil {
		return fmt.Errorf("configuring capture: %w", err)
	}
	source := newKeyboardSource(os.Stdin, os.Stdout, capture, a.contextProvider())
	err = a.pipeline.Loop(ctx, source, a.present)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (a *app) ask(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading question audio: %w", err)
	}

	result, err := a.pipeline.Run(ctx, application.Invocation{
		Capture: audio.NewNamedUpload(path, data),
		Context: a.contextProvider(),
	})
	a.present(ctx, result, err)
	return err
}

func (a *app) watch(ctx context.Context, dir string) error {
	spool := audio.NewSpool(dir, a.logger)
	if err := spool.Start(ctx); err != nil {
		return err
	}
	return a.pipeline.Loop(ctx, newSpoolSource(spool, a.contextProvider()), a.present)
}

// present prints the outcome and plays the spoken answer when enabled.
func (a *app) present(ctx context.Context, result *application.Result, err error) {
	if result != nil && !result.Transcript.Empty() {
		fmt.Printf("Q: %s\n", result.Transcript)
	}
	if result != nil && !result.Answer.Empty() {
		fmt.Printf("A: %s\n", result.Answer)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", domain.UserMessage(err))
		return
	}

	if a.player != nil && !result.Audio.Empty() {
		if err := a.player.Play(ctx, result.Audio); err != nil {
			a.logger.Error("playing answer", "error", err)
		}
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	// stdout carries questions and answers, so logs go to stderr.
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
