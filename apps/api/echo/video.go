package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
	videosvc "github.com/darasahq/darasa/services/video"
)

type videoApi struct {
	sessSvc session.ServiceInterface
	usrSvc  user.ServiceInterface
	widget  *videosvc.Widget
	meeting *videosvc.MeetingClient
	conf    *core.Config
	logger  core.Logger
}

func registerVideoAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	sessSvc session.ServiceInterface,
	usrSvc user.ServiceInterface,
	widget *videosvc.Widget,
	meeting *videosvc.MeetingClient,
	conf *core.Config,
	logger core.Logger,
) {
	api := videoApi{
		sessSvc: sessSvc,
		usrSvc:  usrSvc,
		widget:  widget,
		meeting: meeting,
		conf:    conf,
		logger:  logger,
	}

	vg := g.Group("/video", jwt)
	vg.GET("/sessions/:id/widget", api.widgetConfig)
	vg.POST("/sessions/:id/meeting", api.createMeeting, tutorMiddleware())
	vg.GET("/connect", api.connect, tutorMiddleware())
	vg.GET("/connect/callback", api.connectCallback, tutorMiddleware())
}

// Handlers

// widgetConfig returns the embedded meeting widget parameters for a session.
func (api *videoApi) widgetConfig(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sess, err := api.getSession(ctx.Param("id"), claims)
	if err != nil {
		return err
	}

	// opening the call marks a scheduled session active; joining proceeds
	// even if that fails
	if sess.Status == session.StatusScheduled {
		updated, err := api.sessSvc.UpdateStatus(sess.ID, session.StatusInProgress, claims.Subject)
		if err != nil {
			api.logger.Warn(fmt.Sprintf("marking session %s in-progress: %v", sess.ID, err))
		} else {
			sess = updated
		}
	}

	usr, err := api.usrSvc.GetByID(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, api.widget.JoinConfig(sess, usr.Name))
}

// createMeeting creates an external meeting for the session via the
// meeting API; the tutor must have connected their account first.
func (api *videoApi) createMeeting(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sess, err := api.getSession(ctx.Param("id"), claims)
	if err != nil {
		return err
	}
	if sess.TutorID != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	meeting, err := api.meeting.CreateMeeting(sess.TutorID, sess.Subject, sess.StartTime, sess.EndTime.Sub(sess.StartTime))
	if err != nil {
		if errors.Cause(err) == videosvc.ErrNotConnected {
			return echo.NewHTTPError(http.StatusConflict, "meeting account not connected")
		}
		return errors.Wrap(err, "creating meeting")
	}
	return ctx.JSON(http.StatusCreated, meeting)
}

// connect starts the meeting API OAuth flow. The issued state is bound to
// the tutor and checked again on the callback.
func (api *videoApi) connect(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	state := api.meeting.StateFor(claims.Subject)
	return ctx.JSON(http.StatusOK, echo.Map{
		"url":   api.meeting.AuthCodeURL(state),
		"state": state,
	})
}

// connectCallback completes the OAuth flow with the authorization code.
func (api *videoApi) connectCallback(ctx echo.Context) error {
	code := ctx.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.meeting.VerifyState(claims.Subject, ctx.QueryParam("state")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, videosvc.ErrInvalidState.Error())
	}

	if err := api.meeting.Connect(claims.Subject, code); err != nil {
		return errors.Wrap(err, "connecting meeting account")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Meeting account connected."})
}

func (api *videoApi) getSession(id string, claims Claims) (session.Session, error) {
	sess, err := api.sessSvc.GetByID(id)
	if err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return session.Session{}, errHttpNotFound
		}
		return session.Session{}, errors.Wrap(err, "finding session by ID")
	}
	if !sess.Involves(claims.Subject) && !claims.IsAdmin {
		return session.Session{}, errHttpNotFound
	}
	return sess, nil
}
