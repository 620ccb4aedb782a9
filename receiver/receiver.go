// Package receiver serves the LINE webhook and dispatches verified events.
package receiver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/voice-diary/logging"
)

const (
	CallbackPath    = "/callback"
	SignatureHeader = "X-Line-Signature"
	RequestIDHeader = "X-Request-Id"
)

// Receiver verifies LINE webhook requests and dispatches their events.
type Receiver struct {
	channelSecret string
	dispatcher    *Dispatcher
	timeout       time.Duration
	app           *fiber.App
}

// NewReceiver builds the fiber app serving POST /callback. A zero timeout
// leaves handler contexts without a deadline.
func NewReceiver(channelSecret string, dispatcher *Dispatcher, timeout time.Duration) (*Receiver, error) {
	if channelSecret == "" {
		return nil, errors.New("channel secret is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	r := &Receiver{
		channelSecret: channelSecret,
		dispatcher:    dispatcher,
		timeout:       timeout,
	}
	r.app = fiber.New(fiber.Config{
		AppName:               "voice-diary",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	r.app.Use(fiberrecover.New(fiberrecover.Config{EnableStackTrace: true}))
	r.app.Use(requestContext)
	r.app.Post(CallbackPath, r.handleCallback)
	r.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return r, nil
}

// App exposes the fiber app, mainly for app.Test.
func (r *Receiver) App() *fiber.App {
	return r.app
}

// Listen serves on addr until the app is shut down.
func (r *Receiver) Listen(addr string) error {
	logging.Named("receiver").Info().Str("addr", addr).Msg("listening")
	return r.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx is done.
func (r *Receiver) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}

func (r *Receiver) handleCallback(c *fiber.Ctx) error {
	ctx := c.UserContext()
	log := logging.C(ctx)

	body := c.Body()
	log.Debug().Bytes("body", body).Msg("callback request body")

	signature := c.Get(SignatureHeader)
	if signature == "" || !webhook.ValidateSignature(r.channelSecret, signature, body) {
		log.Info().Msg("invalid signature, check the channel access token and channel secret")
		return fiber.NewError(fiber.StatusBadRequest, webhook.ErrInvalidSignature.Error())
	}

	var cb webhook.CallbackRequest
	if err := json.Unmarshal(body, &cb); err != nil {
		log.Warn().Err(err).Msg("malformed callback body")
		return fiber.NewError(fiber.StatusBadRequest, "malformed callback body")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	for _, event := range cb.Events {
		if _, err := r.dispatcher.Dispatch(ctx, event); err != nil {
			return errors.Wrapf(err, "handling %s event", event.GetType())
		}
	}
	return c.SendString("OK")
}

// requestContext tags each request with an id and a logger carrying it.
func requestContext(c *fiber.Ctx) error {
	reqID := c.Get(RequestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	c.Set(RequestIDHeader, reqID)
	c.SetUserContext(logging.WithRequest(c.UserContext(), reqID))

	start := time.Now()
	err := c.Next()
	logging.C(c.UserContext()).Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Dur("took", time.Since(start)).
		Msg("request done")
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		logging.C(c.UserContext()).Error().Stack().Err(err).Msg("callback failed")
	}
	return c.Status(code).SendString(http.StatusText(code))
}
