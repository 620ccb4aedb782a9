package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/mrsingh-rishi/voice-diary/config"
	"github.com/mrsingh-rishi/voice-diary/content"
	"github.com/mrsingh-rishi/voice-diary/llm"
	"github.com/mrsingh-rishi/voice-diary/logging"
	"github.com/mrsingh-rishi/voice-diary/output"
	"github.com/mrsingh-rishi/voice-diary/receiver"
	"github.com/mrsingh-rishi/voice-diary/stt"
	"github.com/mrsingh-rishi/voice-diary/workers"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Get().Fatal().Err(err).Msg("loading config")
	}

	log := logging.Init(logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "voice-diary",
	})

	r, err := newReceiver(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("building receiver")
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown failed")
		}
	}()

	if err := r.Listen(cfg.Server.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func newReceiver(cfg *config.Config) (*receiver.Receiver, error) {
	httpClient := &http.Client{Timeout: cfg.Server.RequestTimeout}

	oaCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		oaCfg.BaseURL = cfg.OpenAI.BaseURL
	}
	oaCfg.HTTPClient = httpClient
	oa := openai.NewClientWithConfig(oaCfg)

	transcriber, err := stt.NewWhisperClient(oa, cfg.Transcribe.Model, cfg.Transcribe.Language, cfg.Transcribe.AudioDir, cfg.Transcribe.AudioExt)
	if err != nil {
		return nil, err
	}
	rewriter, err := llm.NewOpenAIClient(oa, llm.DiaryInstructions, cfg.OpenAI.ChatModel)
	if err != nil {
		return nil, err
	}
	replier, err := output.NewLineOutput(cfg.Line.AccessToken, cfg.Line.APIEndpoint, httpClient)
	if err != nil {
		return nil, err
	}
	fetcher := content.NewFetcher(cfg.Line.AccessToken, cfg.Line.DataEndpoint, httpClient)

	worker, err := workers.NewDiaryWorker(fetcher, transcriber, rewriter, replier)
	if err != nil {
		return nil, err
	}

	d := receiver.NewDispatcher()
	d.Register(receiver.AudioMessage, receiver.AudioMessageHandler(worker.Handle))
	return receiver.NewReceiver(cfg.Line.ChannelSecret, d, cfg.Server.RequestTimeout)
}
