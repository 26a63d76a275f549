package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/resource"
	"github.com/darasahq/darasa/core/session"
)

type resourceApi struct {
	svc     resource.ServiceInterface
	sessSvc session.ServiceInterface
}

func registerResourceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc resource.ServiceInterface,
	sessSvc session.ServiceInterface,
) {
	api := resourceApi{
		svc:     svc,
		sessSvc: sessSvc,
	}

	rg := g.Group("/resources", jwt)
	rg.POST("", api.upload)
	rg.GET("", api.queryMine)
	rg.GET("/session/:sessionID", api.queryForSession)
	rg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *resourceApi) upload(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}

	sessionID := ctx.FormValue("session_id")
	if sessionID != "" {
		if err := api.checkSessionAccess(sessionID, claims); err != nil {
			return err
		}
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	res, err := api.svc.Upload(claims.Subject, sessionID, fh.Filename, f)
	if err != nil {
		return errors.Wrap(err, "uploading resource")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *resourceApi) queryMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	resources, err := api.svc.QueryForOwner(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	if resources == nil {
		resources = []resource.Resource{}
	}
	return ctx.JSON(http.StatusOK, resources)
}

func (api *resourceApi) queryForSession(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err := api.checkSessionAccess(ctx.Param("sessionID"), claims); err != nil {
		return err
	}

	resources, err := api.svc.QueryForSession(ctx.Param("sessionID"))
	if err != nil {
		return errors.Wrap(err, "querying session resources")
	}
	if resources == nil {
		resources = []resource.Resource{}
	}
	return ctx.JSON(http.StatusOK, resources)
}

func (api *resourceApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Delete(ctx.Param("id"), claims.Subject); err != nil {
		return errors.Wrap(err, "deleting resource")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// checkSessionAccess ensures the caller is a participant of the session.
func (api *resourceApi) checkSessionAccess(sessionID string, claims Claims) error {
	sess, err := api.sessSvc.GetByID(sessionID)
	if err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding session by ID")
	}
	if !sess.Involves(claims.Subject) && !claims.IsAdmin {
		return errHttpNotFound
	}
	return nil
}
