package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"board-api/bridge"
	"board-api/domain"
)

func sseHeaders(c echo.Context) (http.Flusher, error) {
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return nil, c.String(http.StatusInternalServerError, "stream unsupported")
	}
	return flusher, nil
}

func writeEvent(c echo.Context, flusher http.Flusher, ev domain.Event) error {
	if _, err := c.Response().Write([]byte("event: " + ev.Type + "\n")); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := c.Response().Write(ev.Data); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func streamEvents(streams Streamer) echo.HandlerFunc {
	return func(c echo.Context) error {
		flusher, err := sseHeaders(c)
		if flusher == nil {
			return err
		}
		ctx := c.Request().Context()
		events, cancel, err := streams.Subscribe(ctx)
		if err != nil {
			c.Logger().Error(err)
			return err
		}
		defer cancel()
		c.Response().WriteHeader(http.StatusOK)
		flusher.Flush()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if err := writeEvent(c, flusher, ev); err != nil {
					c.Logger().Error(err)
					return err
				}
			}
		}
	}
}

func streamAdmin(streams Streamer, pairing PairingSource, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			if token := c.QueryParam("token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		if err := auth.Authenticate(authHeader); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		flusher, err := sseHeaders(c)
		if flusher == nil {
			return err
		}
		ctx := c.Request().Context()
		// Subscribe before replaying the current pairing state so a
		// transition published in between is not lost.
		events, cancel, err := streams.SubscribeAdmin(ctx)
		if err != nil {
			c.Logger().Error(err)
			return err
		}
		defer cancel()
		c.Response().WriteHeader(http.StatusOK)
		flusher.Flush()
		if err := replayPairing(c, flusher, pairing); err != nil {
			c.Logger().Error(err)
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if err := writeEvent(c, flusher, ev); err != nil {
					c.Logger().Error(err)
					return err
				}
			}
		}
	}
}

func replayPairing(c echo.Context, flusher http.Flusher, pairing PairingSource) error {
	status, token := pairing.State()
	switch status {
	case bridge.StatusUnpaired:
		data, err := json.Marshal(token)
		if err != nil {
			return err
		}
		return writeEvent(c, flusher, domain.Event{Type: domain.AdminQR, Data: data})
	case bridge.StatusReady:
		data, err := json.Marshal(true)
		if err != nil {
			return err
		}
		return writeEvent(c, flusher, domain.Event{Type: domain.AdminReady, Data: data})
	default:
		return nil
	}
}
