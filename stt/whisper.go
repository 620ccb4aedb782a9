package stt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/mrsingh-rishi/voice-diary/logging"
	"github.com/mrsingh-rishi/voice-diary/model"
)

type WhisperClient struct {
	Client   *openai.Client
	Model    string
	Language string
	// AudioDir is the parent of the per-request scratch directories.
	AudioDir string
	// AudioExt is the extension of the file handed to the model, without the dot.
	AudioExt string
}

func NewWhisperClient(client *openai.Client, modelName, language, audioDir, audioExt string) (*WhisperClient, error) {
	if client == nil {
		return nil, fmt.Errorf("openai client is required")
	}
	if modelName == "" {
		modelName = openai.Whisper1
	}
	if audioDir == "" {
		audioDir = os.TempDir()
	}
	if audioExt == "" {
		audioExt = "m4a"
	}
	return &WhisperClient{
		Client:   client,
		Model:    modelName,
		Language: language,
		AudioDir: audioDir,
		AudioExt: audioExt,
	}, nil
}

// AudioFilename is the name the payload of messageID is stored under.
func AudioFilename(messageID, ext string) string {
	return fmt.Sprintf("audio_%s.%s", messageID, ext)
}

// Transcribe writes audio to audio_<messageID>.<ext> in a fresh scratch
// directory, sends it to the transcription model and removes the directory.
func (c *WhisperClient) Transcribe(ctx context.Context, messageID string, audio model.AudioPayload) (model.Transcript, error) {
	dir, err := os.MkdirTemp(c.AudioDir, "voice-diary-*")
	if err != nil {
		return "", errors.Wrap(err, "creating scratch dir")
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logging.C(ctx).Warn().Err(rmErr).Str("dir", dir).Msg("removing scratch dir")
		}
	}()

	path := filepath.Join(dir, AudioFilename(filepath.Base(messageID), c.AudioExt))
	if err := os.WriteFile(path, audio, 0o600); err != nil {
		return "", errors.Wrap(err, "writing audio file")
	}

	start := time.Now()
	resp, err := c.Client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.Model,
		FilePath: path,
		Language: c.Language,
	})
	if err != nil {
		return "", errors.Wrap(err, "transcription request")
	}

	logging.C(ctx).Info().
		Str("message_id", messageID).
		Dur("took", time.Since(start)).
		Int("chars", len(resp.Text)).
		Msg("transcribed audio")
	return model.Transcript(resp.Text), nil
}
