package workers

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/mrsingh-rishi/voice-diary/workers ContentFetcher,Transcriber,Rewriter,Replier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/voice-diary/logging"
	"github.com/mrsingh-rishi/voice-diary/model"
)

var ErrEmptyTranscript = errors.New("transcript is empty")

type ContentFetcher interface {
	Fetch(ctx context.Context, messageID string) (model.AudioPayload, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, messageID string, audio model.AudioPayload) (model.Transcript, error)
}

type Rewriter interface {
	Rewrite(ctx context.Context, transcript model.Transcript) (model.ReplyText, error)
}

type Replier interface {
	Reply(ctx context.Context, replyToken string, text model.ReplyText) error
}

// DiaryWorker turns one audio message into one diary reply.
type DiaryWorker struct {
	Fetcher     ContentFetcher
	Transcriber Transcriber
	Rewriter    Rewriter
	Replier     Replier
}

func NewDiaryWorker(fetcher ContentFetcher, transcriber Transcriber, rewriter Rewriter, replier Replier) (*DiaryWorker, error) {
	// Params Validation
	if fetcher == nil {
		return nil, fmt.Errorf("content fetcher is required")
	}
	if transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	if rewriter == nil {
		return nil, fmt.Errorf("rewriter is required")
	}
	if replier == nil {
		return nil, fmt.Errorf("replier is required")
	}
	return &DiaryWorker{
		Fetcher:     fetcher,
		Transcriber: transcriber,
		Rewriter:    rewriter,
		Replier:     replier,
	}, nil
}

// Handle fetches, transcribes and rewrites the audio of ev, then replies with
// the result. Errors name the stage that failed.
func (w *DiaryWorker) Handle(ctx context.Context, ev model.AudioEvent) error {
	log := logging.C(ctx).With().
		Str("message_id", ev.MessageID).
		Str("event_id", ev.EventID).
		Logger()
	ctx = log.WithContext(ctx)
	start := time.Now()

	audio, err := w.Fetcher.Fetch(ctx, ev.MessageID)
	if err != nil {
		return errors.Wrap(err, "fetch")
	}

	transcript, err := w.Transcriber.Transcribe(ctx, ev.MessageID, audio)
	if err != nil {
		return errors.Wrap(err, "transcribe")
	}
	if strings.TrimSpace(string(transcript)) == "" {
		return errors.WithStack(ErrEmptyTranscript)
	}
	log.Debug().Str("transcript", string(transcript)).Msg("transcript ready")

	reply, err := w.Rewriter.Rewrite(ctx, transcript)
	if err != nil {
		return errors.Wrap(err, "rewrite")
	}
	log.Debug().Str("reply", string(reply)).Msg("diary entry ready")

	if err := w.Replier.Reply(ctx, ev.ReplyToken, reply); err != nil {
		return errors.Wrap(err, "reply")
	}

	log.Info().Dur("took", time.Since(start)).Msg("audio message handled")
	return nil
}
