package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/earning"
	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/profile"
	"github.com/darasahq/darasa/core/resource"
	"github.com/darasahq/darasa/core/review"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
	"github.com/darasahq/darasa/realtime"
	videosvc "github.com/darasahq/darasa/services/video"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc     user.ServiceInterface
		SessionSvc  session.ServiceInterface
		ProfileSvc  profile.ServiceInterface
		MessageSvc  message.ServiceInterface
		ReviewSvc   review.ServiceInterface
		EarningSvc  earning.ServiceInterface
		ResourceSvc resource.ServiceInterface

		Broker        *realtime.Broker
		Widget        *videosvc.Widget
		MeetingClient *videosvc.MeetingClient

		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerUserAPI(v1, jwt, s.deps.UserSvc, conf, s.deps.Validate, s.deps.Translator)
	registerSessionAPI(v1, jwt, s.deps.SessionSvc, s.deps.Validate)
	registerProfileAPI(v1, jwt, s.deps.ProfileSvc, s.deps.ReviewSvc, s.deps.Validate)
	registerMessageAPI(v1, jwt, s.deps.MessageSvc, s.deps.Validate)
	registerReviewAPI(v1, jwt, s.deps.ReviewSvc, s.deps.Validate)
	registerEarningAPI(v1, jwt, s.deps.EarningSvc)
	registerResourceAPI(v1, jwt, s.deps.ResourceSvc, s.deps.SessionSvc)
	registerVideoAPI(v1, jwt, s.deps.SessionSvc, s.deps.UserSvc, s.deps.Widget, s.deps.MeetingClient, conf, s.deps.Logger)
	registerEventsAPI(v1, jwt, s.deps.Broker, s.deps.SessionSvc, s.deps.Logger)
}

// Start runs the listener; startup/serve failures are reported on Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *Server) Errors() <-chan error             { return s.errs }
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// signalShutdown requests a graceful shutdown from within a handler.
func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}
