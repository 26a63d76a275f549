package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/session"
)

type sessionApi struct {
	svc      session.ServiceInterface
	validate *validator.Validate
}

func registerSessionAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc session.ServiceInterface,
	validate *validator.Validate,
) {
	api := sessionApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/sessions", jwt)
	sg.POST("", api.book)
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.PATCH("/:id/status", api.updateStatus)
	sg.PUT("/:id/notes", api.updateNotes)
	sg.POST("/:id/signal", api.signal)
}

// Handlers

func (api *sessionApi) book(ctx echo.Context) error {
	var data session.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsStudent && !claims.IsAdmin {
		// students always book for themselves
		data.StudentID = claims.Subject
	}

	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.Book(data)
	if err != nil {
		return errors.Wrap(err, "booking session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionApi) query(ctx echo.Context) error {
	filter := new(session.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []session.Session{})
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin {
		// non-admins only ever see their own sessions
		filter.TutorID = ""
		filter.StudentID = ""
		filter.UserID = claims.Subject
	}

	ordering := new(Ordering)
	ordering.Bind(ctx, "start_time", "end_time", "status", "subject", "created_at")

	sessions, err := api.svc.Query(filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	sess, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) updateStatus(ctx echo.Context) error {
	var data session.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sess, err := api.svc.UpdateStatus(ctx.Param("id"), data.Status, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "updating session status")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) updateNotes(ctx echo.Context) error {
	var data session.UpdateNotes
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateNotes")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sess, err := api.svc.UpdateNotes(ctx.Param("id"), data.Notes, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "updating session notes")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) signal(ctx echo.Context) error {
	var data SignalRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignalRequest")
	}

	sess, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	sess, err = api.svc.UpdateSignaling(sess.ID, session.SignalingUpdate{
		Offer:           data.Offer,
		Answer:          data.Answer,
		OfferCandidate:  data.OfferCandidate,
		AnswerCandidate: data.AnswerCandidate,
		Clear:           data.Clear,
	})
	if err != nil {
		return errors.Wrap(err, "updating session signaling")
	}
	return ctx.JSON(http.StatusOK, sess)
}

// getObject loads the session in ctx's `id` param and ensures the caller
// is a participant (or admin). Outsiders get a 404, not a 403.
func (api *sessionApi) getObject(ctx echo.Context) (session.Session, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "getting context claims")
	}

	sess, err := api.svc.GetByID(ctx.Param("id"))
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

type SignalRequest struct {
	Offer           string `json:"offer"`
	Answer          string `json:"answer"`
	OfferCandidate  string `json:"offer_candidate"`
	AnswerCandidate string `json:"answer_candidate"`
	Clear           bool   `json:"clear"`
}
