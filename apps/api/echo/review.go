package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/review"
)

type reviewApi struct {
	svc      review.ServiceInterface
	validate *validator.Validate
}

func registerReviewAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc review.ServiceInterface,
	validate *validator.Validate,
) {
	api := reviewApi{
		svc:      svc,
		validate: validate,
	}

	rg := g.Group("/reviews")
	rg.GET("/tutor/:tutorID", api.queryForTutor)
	rg.POST("", api.create, jwt, studentMiddleware())
}

// Handlers

func (api *reviewApi) create(ctx echo.Context) error {
	var data review.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rev, err := api.svc.Create(claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating review")
	}
	return ctx.JSON(http.StatusCreated, rev)
}

func (api *reviewApi) queryForTutor(ctx echo.Context) error {
	reviews, err := api.svc.QueryForTutor(ctx.Param("tutorID"))
	if err != nil {
		return errors.Wrap(err, "querying tutor reviews")
	}
	if reviews == nil {
		reviews = []review.Review{}
	}
	return ctx.JSON(http.StatusOK, reviews)
}
