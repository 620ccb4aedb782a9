package receiver

import (
	"context"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/voice-diary/logging"
	"github.com/mrsingh-rishi/voice-diary/model"
)

// Route keys the registration table. Message is empty for events that carry
// no message content.
type Route struct {
	Event   string
	Message string
}

// AudioMessage is the route of message events with audio content.
var AudioMessage = Route{Event: "message", Message: "audio"}

type Handler func(ctx context.Context, event webhook.EventInterface) error

// Dispatcher maps routes to handlers. Register everything before serving;
// lookups are not synchronised with registration.
type Dispatcher struct {
	routes map[Route]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{routes: make(map[Route]Handler)}
}

// Register sets the handler for r, replacing any previous one.
func (d *Dispatcher) Register(r Route, h Handler) {
	d.routes[r] = h
}

// RouteOf returns the route event is dispatched on. Message events are keyed
// by their concrete content type, so events built in code route the same as
// decoded ones.
func RouteOf(event webhook.EventInterface) Route {
	e, ok := event.(webhook.MessageEvent)
	if !ok {
		return Route{Event: event.GetType()}
	}
	r := Route{Event: "message"}
	switch m := e.Message.(type) {
	case nil:
	case webhook.AudioMessageContent:
		r.Message = "audio"
	case webhook.TextMessageContent:
		r.Message = "text"
	case webhook.ImageMessageContent:
		r.Message = "image"
	case webhook.VideoMessageContent:
		r.Message = "video"
	case webhook.FileMessageContent:
		r.Message = "file"
	case webhook.LocationMessageContent:
		r.Message = "location"
	case webhook.StickerMessageContent:
		r.Message = "sticker"
	default:
		r.Message = m.GetType()
	}
	return r
}

// Dispatch runs the handler registered for event. It reports false when no
// handler matches.
func (d *Dispatcher) Dispatch(ctx context.Context, event webhook.EventInterface) (bool, error) {
	r := RouteOf(event)
	h, ok := d.routes[r]
	if !ok {
		logging.C(ctx).Debug().Str("event", r.Event).Str("message", r.Message).Msg("no handler registered")
		return false, nil
	}
	return true, h(ctx, event)
}

var errUnexpectedEvent = errors.New("unexpected event for audio handler")

// AudioMessageHandler adapts handle to the registration table. It expects
// message events with audio content.
func AudioMessageHandler(handle func(context.Context, model.AudioEvent) error) Handler {
	return func(ctx context.Context, event webhook.EventInterface) error {
		e, ok := event.(webhook.MessageEvent)
		if !ok {
			return errors.Wrapf(errUnexpectedEvent, "got %s", event.GetType())
		}
		audio, ok := e.Message.(webhook.AudioMessageContent)
		if !ok {
			return errors.Wrapf(errUnexpectedEvent, "got %s message", RouteOf(e).Message)
		}

		ev := model.AudioEvent{
			MessageID:  audio.Id,
			ReplyToken: e.ReplyToken,
			EventID:    e.WebhookEventId,
			DurationMs: audio.Duration,
		}
		if src, ok := e.Source.(webhook.UserSource); ok {
			ev.UserID = src.UserId
		}
		return handle(ctx, ev)
	}
}
