package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// WebhookClient speaks to a messaging gateway over HTTP: the gateway
// POSTs inbound messages and pairing events to this service, and
// replies go back out as POSTs to the gateway's reply URL. The gateway
// owns the actual account session (QR login included); this side only
// relays its events.
type WebhookClient struct {
	token      string
	replyURL   string
	httpClient *http.Client
	messages   chan InboundMessage
	pairing    chan PairingEvent
}

// NewWebhookClient creates a client authenticating gateway calls with
// the given bearer token. replyURL may be empty, in which case replies
// fail and are logged by the bridge.
func NewWebhookClient(token, replyURL string) *WebhookClient {
	return &WebhookClient{
		token:      token,
		replyURL:   replyURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		messages:   make(chan InboundMessage, 64),
		pairing:    make(chan PairingEvent, 8),
	}
}

func (w *WebhookClient) Messages() <-chan InboundMessage {
	return w.messages
}

func (w *WebhookClient) PairingEvents() <-chan PairingEvent {
	return w.pairing
}

// Send delivers a reply through the gateway.
func (w *WebhookClient) Send(ctx context.Context, chatID, text string) error {
	if w.replyURL == "" {
		return errors.New("no reply URL configured")
	}
	body, err := json.Marshal(map[string]string{"chatId": chatID, "text": text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.replyURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+w.token)
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("gateway reply rejected: %s", resp.Status)
	}
	return nil
}

// Register mounts the gateway-facing webhook endpoints.
func (w *WebhookClient) Register(e *echo.Echo) {
	g := e.Group("/webhook")
	g.POST("/messages", w.handleInbound)
	g.POST("/pairing", w.handlePairing)
}

func (w *WebhookClient) authorized(c echo.Context) bool {
	parts := strings.SplitN(c.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	return len(parts) == 2 && parts[0] == "Bearer" && parts[1] == w.token
}

type inboundPayload struct {
	ID     string `json:"id"`
	ChatID string `json:"chatId"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

func (w *WebhookClient) handleInbound(c echo.Context) error {
	if !w.authorized(c) {
		return c.NoContent(http.StatusUnauthorized)
	}
	var payload inboundPayload
	if err := c.Bind(&payload); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if payload.Text == "" {
		return c.NoContent(http.StatusBadRequest)
	}
	select {
	case w.messages <- InboundMessage{ID: payload.ID, ChatID: payload.ChatID, Sender: payload.Sender, Text: payload.Text}:
		return c.NoContent(http.StatusAccepted)
	default:
		// Inbound buffer full; let the gateway redeliver later.
		return c.NoContent(http.StatusServiceUnavailable)
	}
}

type pairingPayload struct {
	QR    string `json:"qr"`
	Ready bool   `json:"ready"`
}

func (w *WebhookClient) handlePairing(c echo.Context) error {
	if !w.authorized(c) {
		return c.NoContent(http.StatusUnauthorized)
	}
	var payload pairingPayload
	if err := c.Bind(&payload); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if !payload.Ready && payload.QR == "" {
		return c.NoContent(http.StatusBadRequest)
	}
	select {
	case w.pairing <- PairingEvent{QR: payload.QR, Ready: payload.Ready}:
		return c.NoContent(http.StatusAccepted)
	default:
		return c.NoContent(http.StatusServiceUnavailable)
	}
}
