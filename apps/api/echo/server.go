package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/academic"
	"github.com/sadhanaschool/backend/core/chat"
	"github.com/sadhanaschool/backend/core/fees"
	"github.com/sadhanaschool/backend/core/people"
	"github.com/sadhanaschool/backend/core/user"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		SignalShutdown func()

		UserSvc     *user.Service
		PeopleSvc   *people.Service
		AcademicSvc *academic.Service
		FeeSvc      *fees.Service
		Bot         *chat.Bot
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts    *Options
		app     *echo.Echo
		auth    *authenticator
		metrics *metrics
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	if opts.Bot == nil {
		opts.Bot = chat.NewBot(opts.Conf)
	}
	s := &server{
		opts:    opts,
		app:     echo.New(),
		auth:    newAuthenticator(opts.Conf, opts.UserSvc),
		metrics: newMetrics(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     conf.Server.AllowedOrigins,
		AllowCredentials: true,
	}))
	s.app.Use(s.metrics.middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)
	s.app.GET("/health", health)
	s.app.GET("/metrics", echo.WrapHandler(s.metrics.handler()))

	api := s.app.Group("/api")
	api.GET("", s.root)
	jwt := s.auth.middleware()
	loginLimiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStore(rate.Limit(conf.Server.LoginRateLimit)),
	})

	registerUserAPI(api, jwt, loginLimiter, s.auth, s.opts)
	registerStudentAPI(api, jwt, s.auth, s.opts)
	registerAcademicAPI(api, jwt, s.auth, s.opts)
	registerFeeAPI(api, jwt, s.auth, s.opts)
	registerFacultyAPI(api, jwt, s.auth, s.opts)
	registerParentAPI(api, jwt, s.auth, s.opts)
	registerAdminAPI(api, jwt, s.auth, s.opts)

	api.POST("/chat", s.chat, jwt)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": s.opts.Conf.AppName + " API",
		"status":  "active",
		"api":     "/api",
	})
}

func (s *server) root(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"message": s.opts.Conf.AppName + " API", "status": "active"})
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (s *server) chat(ctx echo.Context) error {
	var msg chat.Message
	if err := ctx.Bind(&msg); err != nil {
		return errors.Wrap(err, "binding to chat.Message")
	}
	if err := s.opts.Validate.Struct(msg); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s.opts.Bot.Reply(msg))
}
