package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/live"
	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/realtime"
)

type eventsApi struct {
	broker  *realtime.Broker
	sessSvc session.ServiceInterface
	logger  core.Logger
}

func registerEventsAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	broker *realtime.Broker,
	sessSvc session.ServiceInterface,
	logger core.Logger,
) {
	api := eventsApi{
		broker:  broker,
		sessSvc: sessSvc,
		logger:  logger,
	}

	g.GET("/events", api.stream, jwt)
}

// stream is the server-sent-events feed backing the dashboards: an initial
// snapshot of the caller's sessions, then live session and message changes,
// plus the notifications raised on status edges. The connection stays open
// until the client goes away.
func (api *eventsApi) stream(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	userID := claims.Subject

	flusher, ok := ctx.Response().Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusNotImplemented, "streaming unsupported")
	}

	snapshot, err := api.sessSvc.QueryForUser(userID)
	if err != nil {
		return errors.Wrap(err, "querying user sessions")
	}

	// subscribe before writing the snapshot so no change is lost in between;
	// the merge-on-arrival reconciler absorbs any overlap
	sessFilter := session.ChangesFor(userID)
	msgFilter := message.ChangesFor(userID)
	sub := api.broker.Subscribe(func(ch realtime.Change) bool {
		return sessFilter(ch) || msgFilter(ch)
	})
	defer sub.Unsubscribe()

	h := ctx.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set(echo.HeaderConnection, "keep-alive")
	ctx.Response().WriteHeader(http.StatusOK)

	send := func(event string, payload interface{}) {
		data, err := json.Marshal(payload)
		if err != nil {
			api.logger.Error("marshaling SSE payload", err)
			return
		}
		fmt.Fprintf(ctx.Response(), "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	// the sink runs synchronously on this goroutine via rec.Apply
	rec := live.NewReconciler(snapshot, live.WithEventSink(func(ev live.Event) {
		send(string(ev.Kind), ev.Session)
	}))

	send("snapshot", snapshot)

	done := ctx.Request().Context().Done()
	for {
		select {
		case <-done:
			return nil
		case ch, chOk := <-sub.Events():
			if !chOk {
				return nil
			}
			switch payload := ch.Payload.(type) {
			case session.Session:
				before := rec.UnreadCount()
				rec.Apply(payload)
				send("session", payload)
				if rec.UnreadCount() > before {
					notifs := rec.Notifications()
					send("notification", notifs[len(notifs)-1])
				}
			case message.Message:
				send("message", payload)
			}
		}
	}
}
