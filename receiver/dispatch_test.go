package receiver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/voice-diary/model"
)

// decodeEvent parses a single-event callback body the way the receiver does.
func decodeEvent(t *testing.T, event string) webhook.EventInterface {
	t.Helper()
	var cb webhook.CallbackRequest
	if err := json.Unmarshal([]byte(`{"destination":"Ubot","events":[`+event+`]}`), &cb); err != nil {
		t.Fatalf("decode callback: %v", err)
	}
	if len(cb.Events) != 1 {
		t.Fatalf("events: got %d, want 1", len(cb.Events))
	}
	return cb.Events[0]
}

const followEvent = `{"type":"follow","mode":"active","timestamp":1462629479859,` +
	`"source":{"type":"user","userId":"U4af4980629"},"webhookEventId":"01FZ74A0TDDPYRVKNK77XKC3ZT",` +
	`"deliveryContext":{"isRedelivery":false},"replyToken":"reply-token-3","follow":{"isUnblocked":false}}`

func TestRouteOf(t *testing.T) {
	cases := []struct {
		name  string
		event webhook.EventInterface
		want  Route
	}{
		{"audio", webhook.MessageEvent{Message: webhook.AudioMessageContent{Id: "1"}}, AudioMessage},
		{"text", webhook.MessageEvent{Message: webhook.TextMessageContent{Id: "2"}}, Route{Event: "message", Message: "text"}},
		{"image", webhook.MessageEvent{Message: webhook.ImageMessageContent{Id: "3"}}, Route{Event: "message", Message: "image"}},
		{"no content", webhook.MessageEvent{}, Route{Event: "message"}},
		{"follow", decodeEvent(t, followEvent), Route{Event: "follow"}},
	}
	for _, c := range cases {
		if got := RouteOf(c.event); got != c.want {
			t.Errorf("%s: got %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	d := NewDispatcher()
	calls := 0
	d.Register(AudioMessage, func(context.Context, webhook.EventInterface) error {
		calls++
		return nil
	})

	handled, err := d.Dispatch(context.Background(), webhook.MessageEvent{Message: webhook.AudioMessageContent{Id: "1"}})
	if err != nil || !handled {
		t.Fatalf("audio: handled=%v err=%v", handled, err)
	}

	handled, err = d.Dispatch(context.Background(), webhook.MessageEvent{Message: webhook.TextMessageContent{Id: "2"}})
	if err != nil || handled {
		t.Fatalf("text: handled=%v err=%v", handled, err)
	}

	if calls != 1 {
		t.Fatalf("calls: got %d, want 1", calls)
	}
}

func TestDispatcher_RegisterReplaces(t *testing.T) {
	d := NewDispatcher()
	boom := errors.New("second")
	d.Register(AudioMessage, func(context.Context, webhook.EventInterface) error { return nil })
	d.Register(AudioMessage, func(context.Context, webhook.EventInterface) error { return boom })

	_, err := d.Dispatch(context.Background(), webhook.MessageEvent{Message: webhook.AudioMessageContent{Id: "1"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected replaced handler to run, got %v", err)
	}
}

func TestAudioMessageHandler_RejectsOtherContent(t *testing.T) {
	called := false
	h := AudioMessageHandler(func(context.Context, model.AudioEvent) error {
		called = true
		return nil
	})

	err := h(context.Background(), webhook.MessageEvent{Message: webhook.TextMessageContent{Id: "2"}})
	if !errors.Is(err, errUnexpectedEvent) {
		t.Fatalf("expected errUnexpectedEvent, got %v", err)
	}
	if err := h(context.Background(), webhook.FollowEvent{}); !errors.Is(err, errUnexpectedEvent) {
		t.Fatalf("expected errUnexpectedEvent for follow, got %v", err)
	}
	if called {
		t.Error("handle should not run for non-audio events")
	}
}
