// Package content downloads media bodies from the LINE content API.
package content

import (
	"context"
	"io"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/voice-diary/logging"
	"github.com/mrsingh-rishi/voice-diary/model"
)

var (
	ErrEmptyMessageID     = errors.New("empty message id")
	ErrContentUnavailable = errors.New("message content unavailable")
)

// Fetcher downloads message content with a channel access token.
type Fetcher struct {
	accessToken string
	endpoint    string
	httpClient  *http.Client
}

// NewFetcher returns a Fetcher for the given channel access token. An empty
// endpoint means the SDK default (https://api-data.line.me).
func NewFetcher(accessToken, endpoint string, httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{
		accessToken: accessToken,
		endpoint:    endpoint,
		httpClient:  httpClient,
	}
}

// Fetch returns the raw body of message messageID. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, messageID string) (model.AudioPayload, error) {
	if messageID == "" {
		return nil, ErrEmptyMessageID
	}

	opts := []messaging_api.MessagingApiBlobAPIOption{
		messaging_api.WithBlobHTTPClient(f.httpClient),
	}
	if f.endpoint != "" {
		opts = append(opts, messaging_api.WithBlobEndpoint(f.endpoint))
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(f.accessToken, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating blob client")
	}

	// The first return value is the raw response, set even when err reports a non-2xx status.
	resp, _, err := blob.WithContext(ctx).GetMessageContentWithHttpInfo(messageID)
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			return nil, errors.Wrapf(ErrContentUnavailable, "message %s: status %d", messageID, resp.StatusCode)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetching content of message %s", messageID)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading content body")
	}

	logging.C(ctx).Debug().
		Str("message_id", messageID).
		Int("bytes", len(body)).
		Str("content_type", resp.Header.Get("Content-Type")).
		Msg("fetched message content")
	return body, nil
}
