package api

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"

	"board-api/board"
	"board-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, bus Bus, streams Streamer, pairing PairingSource, auth Authenticator, logger *log.Logger) {
	e.GET("/api/tasks", getTasks(store, logger))
	e.GET("/api/messages", getMessages(store))
	e.POST("/api/tasks", postTask(bus))
	e.POST("/api/tasks/:id/move", postMove(bus))
	e.DELETE("/api/tasks/:id", deleteTask(bus))
	e.POST("/api/messages", postMessage(bus))
	e.GET("/api/stream", streamEvents(streams))
	e.GET("/api/admin/stream", streamAdmin(streams, pairing, auth))
	e.GET("/healthz", healthz())
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type messagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getTasks(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newSnapshotMetrics(ctx, logger, "/api/tasks")
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		fetchStart := time.Now()
		tasks, fetchErr := store.ListTasks(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Order < tasks[j].Order
		})
		metrics.SetItemsReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getMessages(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		messages, err := store.ListMessages(ctx)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, messagesResponse{Messages: messages})
	}
}

type createTaskRequest struct {
	Title    string           `json:"title"`
	ColumnID domain.Column    `json:"columnId"`
	Order    int              `json:"order"`
	Color    string           `json:"color"`
	Creator  *domain.Identity `json:"creator"`
}

func postTask(bus Bus) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		res, err := bus.Submit(c.Request().Context(), board.Mutation{
			Kind:     board.MutationCreate,
			Title:    req.Title,
			ColumnID: req.ColumnID,
			Order:    req.Order,
			Color:    req.Color,
			Creator:  req.Creator,
		})
		if err != nil {
			return mutationError(c, err)
		}
		return c.JSON(http.StatusCreated, res.Task)
	}
}

type moveTaskRequest struct {
	ColumnID domain.Column `json:"columnId"`
	Order    int           `json:"order"`
}

func postMove(bus Bus) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req moveTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		_, err := bus.Submit(c.Request().Context(), board.Mutation{
			Kind:     board.MutationMove,
			ID:       c.Param("id"),
			ColumnID: req.ColumnID,
			Order:    req.Order,
		})
		if err != nil {
			return mutationError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func deleteTask(bus Bus) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, err := bus.Submit(c.Request().Context(), board.Mutation{
			Kind: board.MutationDelete,
			ID:   c.Param("id"),
		})
		if err != nil {
			return mutationError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type postMessageRequest struct {
	Text        string `json:"text"`
	Sender      string `json:"sender"`
	SenderID    string `json:"senderId"`
	SenderPhoto string `json:"senderPhoto"`
}

func postMessage(bus Bus) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req postMessageRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		res, err := bus.Submit(c.Request().Context(), board.Mutation{
			Kind:        board.MutationPostMessage,
			Text:        req.Text,
			Sender:      req.Sender,
			SenderID:    req.SenderID,
			SenderPhoto: req.SenderPhoto,
		})
		if err != nil {
			return mutationError(c, err)
		}
		return c.JSON(http.StatusCreated, res.Message)
	}
}

func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, postBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func mutationError(c echo.Context, err error) error {
	var notFound board.NotFoundError
	if errors.As(err, &notFound) {
		return c.String(http.StatusNotFound, notFound.Error())
	}
	var invalid board.ValidationError
	if errors.As(err, &invalid) {
		return c.String(http.StatusBadRequest, invalid.Error())
	}
	c.Logger().Error(err)
	return c.String(http.StatusInternalServerError, err.Error())
}
