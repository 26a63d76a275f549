package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/profile"
	"github.com/darasahq/darasa/core/review"
)

type profileApi struct {
	svc      profile.ServiceInterface
	revSvc   review.ServiceInterface
	validate *validator.Validate
}

func registerProfileAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc profile.ServiceInterface,
	revSvc review.ServiceInterface,
	validate *validator.Validate,
) {
	api := profileApi{
		svc:      svc,
		revSvc:   revSvc,
		validate: validate,
	}

	// the tutor finder is public
	tg := g.Group("/tutors")
	tg.GET("", api.queryTutors)
	tg.GET("/:id", api.retrieveTutor)

	pg := g.Group("/profile", jwt)
	pg.GET("/tutor", api.myTutorProfile)
	pg.PUT("/tutor", api.updateTutorProfile, tutorMiddleware())
	pg.GET("/student", api.myStudentProfile)
	pg.PUT("/student", api.updateStudentProfile, studentMiddleware())
}

// Handlers

func (api *profileApi) queryTutors(ctx echo.Context) error {
	filter := new(profile.TutorQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []profile.TutorProfile{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, "hourly_rate", "average_rating", "name", "created_at")

	tutors, err := api.svc.QueryTutors(filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying tutors")
	}
	if tutors == nil {
		tutors = []profile.TutorProfile{}
	}
	return ctx.JSON(http.StatusOK, tutors)
}

func (api *profileApi) retrieveTutor(ctx echo.Context) error {
	prof, err := api.svc.GetTutor(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding tutor profile")
	}

	reviews, err := api.revSvc.QueryForTutor(prof.UserID)
	if err != nil {
		return errors.Wrap(err, "querying tutor reviews")
	}
	if reviews == nil {
		reviews = []review.Review{}
	}

	return ctx.JSON(http.StatusOK, TutorDetailResponse{TutorProfile: prof, Reviews: reviews})
}

func (api *profileApi) myTutorProfile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	prof, err := api.svc.GetTutor(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding tutor profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) updateTutorProfile(ctx echo.Context) error {
	var data profile.UpdateTutorProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTutorProfile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	prof, err := api.svc.UpdateTutor(claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "updating tutor profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) myStudentProfile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	prof, err := api.svc.GetStudent(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding student profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) updateStudentProfile(ctx echo.Context) error {
	var data profile.UpdateStudentProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudentProfile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	prof, err := api.svc.UpdateStudent(claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "updating student profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

type TutorDetailResponse struct {
	profile.TutorProfile
	Reviews []review.Review `json:"reviews"`
}
