package output

import (
	"context"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/voice-diary/logging"
	"github.com/mrsingh-rishi/voice-diary/model"
)

// LineOutput sends replies through the LINE Messaging API.
type LineOutput struct {
	accessToken string
	endpoint    string
	httpClient  *http.Client
}

// NewLineOutput returns a reply dispatcher. An empty endpoint means the SDK
// default (https://api.line.me).
func NewLineOutput(accessToken, endpoint string, httpClient *http.Client) (*LineOutput, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LineOutput{
		accessToken: accessToken,
		endpoint:    endpoint,
		httpClient:  httpClient,
	}, nil
}

// session opens a Messaging API client bound to ctx. It lives for one call
// only; the underlying transport is shared.
func (o *LineOutput) session(ctx context.Context) (*messaging_api.MessagingApiAPI, error) {
	opts := []messaging_api.MessagingApiAPIOption{
		messaging_api.WithHTTPClient(o.httpClient),
	}
	if o.endpoint != "" {
		opts = append(opts, messaging_api.WithEndpoint(o.endpoint))
	}
	api, err := messaging_api.NewMessagingApiAPI(o.accessToken, opts...)
	if err != nil {
		return nil, err
	}
	return api.WithContext(ctx), nil
}

// Reply sends text as a single text message addressed by replyToken.
func (o *LineOutput) Reply(ctx context.Context, replyToken string, text model.ReplyText) error {
	if replyToken == "" {
		return fmt.Errorf("reply token is required")
	}

	api, err := o.session(ctx)
	if err != nil {
		return errors.Wrap(err, "opening messaging session")
	}

	_, err = api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: string(text)},
		},
	})
	if err != nil {
		return errors.Wrap(err, "sending reply")
	}

	logging.C(ctx).Info().Int("chars", len(text)).Msg("reply sent")
	return nil
}
