package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/earning"
)

type earningApi struct {
	svc earning.ServiceInterface
}

func registerEarningAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc earning.ServiceInterface) {
	api := earningApi{svc: svc}

	eg := g.Group("/earnings", jwt, tutorMiddleware())
	eg.GET("", api.query)
	eg.GET("/summary", api.summary)
	eg.POST("/mark-paid", api.markPaid, adminMiddleware())
}

// Handlers

func (api *earningApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	earnings, err := api.svc.QueryForTutor(api.tutorID(ctx, claims))
	if err != nil {
		return errors.Wrap(err, "querying earnings")
	}
	if earnings == nil {
		earnings = []earning.Earning{}
	}
	return ctx.JSON(http.StatusOK, earnings)
}

func (api *earningApi) summary(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	summary, err := api.svc.Summarize(api.tutorID(ctx, claims))
	if err != nil {
		return errors.Wrap(err, "summarizing earnings")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *earningApi) markPaid(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	n, err := api.svc.MarkPaid(api.tutorID(ctx, claims))
	if err != nil {
		return errors.Wrap(err, "marking earnings paid")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"paid": n})
}

// tutorID resolves which tutor's earnings are being addressed. Admins may
// pass ?tutor_id=...; tutors always act on their own.
func (api *earningApi) tutorID(ctx echo.Context, claims Claims) string {
	if claims.IsAdmin {
		if id := ctx.QueryParam("tutor_id"); id != "" {
			return id
		}
	}
	return claims.Subject
}
