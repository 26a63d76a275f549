package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/message"
)

type messageApi struct {
	svc      message.ServiceInterface
	validate *validator.Validate
}

func registerMessageAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc message.ServiceInterface,
	validate *validator.Validate,
) {
	api := messageApi{
		svc:      svc,
		validate: validate,
	}

	mg := g.Group("/messages", jwt)
	mg.POST("", api.send)
	mg.GET("/conversation/:userID", api.conversation)
	mg.POST("/:id/read", api.markRead)
}

// Handlers

func (api *messageApi) send(ctx echo.Context) error {
	var data message.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	msg, err := api.svc.Send(claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messageApi) conversation(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	msgs, err := api.svc.Conversation(claims.Subject, ctx.Param("userID"))
	if err != nil {
		return errors.Wrap(err, "querying conversation")
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messageApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	msg, err := api.svc.MarkRead(ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "marking message read")
	}
	return ctx.JSON(http.StatusOK, msg)
}
