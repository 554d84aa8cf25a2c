package rest

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	"github.com/pot-code/learning-gateway/internal/activity"
	"github.com/pot-code/learning-gateway/internal/apiclient"
	"github.com/pot-code/learning-gateway/internal/authoring"
	"github.com/pot-code/learning-gateway/internal/curriculum"
	infra "github.com/pot-code/learning-gateway/internal/infrastructure"
	"github.com/pot-code/learning-gateway/internal/infrastructure/auth"
	"github.com/pot-code/learning-gateway/internal/infrastructure/driver"
	"github.com/pot-code/learning-gateway/internal/infrastructure/metrics"
	"github.com/pot-code/learning-gateway/internal/infrastructure/validate"
	"github.com/pot-code/learning-gateway/internal/interfaces/rest/handler"
	"github.com/pot-code/learning-gateway/internal/interfaces/rest/middleware"
	"github.com/pot-code/learning-gateway/internal/player"
	"go.elastic.co/apm/module/apmechov4"
	"go.uber.org/zap"
)

// Pinger a dependency the liveness check pings
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies everything the transport is wired to
type Dependencies struct {
	DB           driver.ITransactionalDB
	KV           driver.KeyValueDB
	Upstream     Pinger
	Curriculum   curriculum.UseCase
	Certificates handler.CertificateIssuer
	Authoring    authoring.UseCase
	Activity     activity.UseCase
	Player       *player.Manager
	Metrics      *metrics.Metrics
}

// NewApp create http transport
func NewApp(option *infra.AppConfig, deps *Dependencies, logger *zap.Logger) *echo.Echo {
	var (
		app       = echo.New()
		validator = validate.NewValidator()
		websocket = infra.NewWebsocket()
		blacklist = auth.NewBlacklist(deps.KV)
		jwtUtil   = auth.NewJWTUtil(option.Security.JWTMethod,
			option.Security.JWTSecret,
			option.Security.TokenName)
		jwtMiddleware = middleware.VerifyToken(jwtUtil, &middleware.ValidateTokenOption{
			InBlackList: blacklist.Revoked,
			Propagate:   apiclient.WithToken,
		})
	)

	registerLivenessCheck(app, logger, deps.DB, deps.KV, deps.Upstream)
	app.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	if option.Env == infra.EnvDevelopment {
		registerProfileEndpoints(app)

		app.Use(middleware.Logging(logger, &middleware.LoggingConfig{
			Skipper: func(e echo.Context) bool {
				return isOpsRoute(e.Request().RequestURI)
			},
		}))
	}
	app.Use(middleware.Metrics(deps.Metrics))
	app.Use(middleware.ErrorHandling(
		&middleware.ErrorHandlingOption{
			Handler: func(c echo.Context, err error) {
				traceID := c.Response().Header().Get(echo.HeaderXRequestID)
				re := handler.NewRESTErrorFrom(err).SetTraceID(traceID)
				c.JSON(re.Code, re)
				if re.Code >= http.StatusInternalServerError {
					logger.Error(err.Error(), zap.String("trace.id", traceID))
				}
			},
		},
	))
	app.Use(echo_middleware.Secure())
	if option.DevOP.APM {
		app.Use(apmechov4.Middleware())
	}
	app.Use(echo_middleware.CORS())
	app.Use(middleware.AbortRequest(&middleware.AbortRequestOption{
		Timeout: option.RequestTimeout,
		Skipper: func(c echo.Context) bool {
			// streams and certificate generation have their own lifetimes
			path := c.Path()
			return strings.HasPrefix(path, "/api/v1/ws/") || strings.HasSuffix(path, "/certificate")
		},
	}))

	var (
		CourseHandler    = handler.NewCourseHandler(deps.Curriculum, deps.Certificates, validator)
		AuthoringHandler = handler.NewAuthoringHandler(deps.Authoring, jwtUtil, validator)
		PlayerHandler    = handler.NewPlayerHandler(deps.Player, websocket, jwtUtil, validator)
		TimeSpentHandler = handler.NewTimeSpentHandler(deps.Activity, jwtUtil, validator)
		AuthHandler      = handler.NewAuthHandler(jwtUtil, blacklist)
	)

	routes := createEndpoint(app,
		&endpoint{
			apiVersion:  "api/v1",
			middlewares: []echo.MiddlewareFunc{echo_middleware.RequestID(), middleware.SetTraceLogger(logger)},
			groups: []*apiGroup{
				{
					prefix:      "/courses",
					middlewares: []echo.MiddlewareFunc{jwtMiddleware},
					routes: []*route{
						{"GET", "/:id/curriculum", CourseHandler.HandleGetCurriculum, nil},
						{"POST", "/:id/certificate", CourseHandler.HandleRequestCertificate, nil},
						{"GET", "/:id/outline", AuthoringHandler.HandleGetOutline, nil},
						{"PATCH", "/:id/sections/order", AuthoringHandler.HandleMoveSection, nil},
						{"PATCH", "/:id/sections/:sectionId/lessons/order", AuthoringHandler.HandleMoveLesson, nil},
					},
				},
				{
					prefix:      "/player/sessions",
					middlewares: []echo.MiddlewareFunc{jwtMiddleware},
					routes: []*route{
						{"POST", "", PlayerHandler.HandleOpenSession, nil},
						{"GET", "/:sid", PlayerHandler.HandleGetSession, nil},
						{"DELETE", "/:sid", PlayerHandler.HandleCloseSession, nil},
						{"POST", "/:sid/retry", PlayerHandler.HandleRetry, nil},
						{"POST", "/:sid/select", PlayerHandler.HandleSelectLesson, nil},
						{"POST", "/:sid/next", PlayerHandler.HandleNextLesson, nil},
						{"POST", "/:sid/previous", PlayerHandler.HandlePreviousLesson, nil},
						{"POST", "/:sid/sections/:sectionId/toggle", PlayerHandler.HandleToggleSection, nil},
						{"POST", "/:sid/expand-all", PlayerHandler.HandleExpandAll, nil},
						{"POST", "/:sid/collapse-all", PlayerHandler.HandleCollapseAll, nil},
						{"POST", "/:sid/sidebar", PlayerHandler.HandleToggleSidebar, nil},
						{"PATCH", "/:sid/lessons/:lessonId/completion", PlayerHandler.HandleSetCompletion, nil},
						{"GET", "/:sid/lessons/:lessonId/content", PlayerHandler.HandleGetContent, nil},
					},
				},
				{
					prefix:      "/activity",
					middlewares: []echo.MiddlewareFunc{jwtMiddleware},
					routes: []*route{
						{"GET", "/time-spent", TimeSpentHandler.HandleGetTimeSpent, nil},
					},
				},
				{
					prefix: "/auth",
					routes: []*route{
						{"PUT", "/sign-out", AuthHandler.HandleSignOut, nil},
					},
				},
				{
					prefix:      "/ws",
					middlewares: []echo.MiddlewareFunc{jwtMiddleware},
					routes: []*route{
						{"GET", "/player/:sid", PlayerHandler.HandleStream, nil},
					},
				},
			},
		})

	printRoutes(routes, logger)
	return app
}

// Serve listen until ctx is done, then give outstanding requests option.RequestTimeout to finish
func Serve(ctx context.Context, app *echo.Echo, option *infra.AppConfig, logger *zap.Logger) error {
	errc := make(chan error, 1)
	go func() {
		errc <- app.Start(fmt.Sprintf("%s:%d", option.Host, option.Port))
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down http server")
	sctx, cancel := context.WithTimeout(context.Background(), option.RequestTimeout)
	defer cancel()
	return app.Shutdown(sctx)
}

func isOpsRoute(uri string) bool {
	return strings.HasPrefix(uri, "/healthz") || strings.HasPrefix(uri, "/metrics")
}

func printRoutes(routes []*echo.Route, logger *zap.Logger) {
	for _, route := range routes {
		name := route.Name[strings.LastIndexByte(route.Name, '.')+1:]
		logger.Debug("Registered route", zap.String("method", route.Method), zap.String("path", route.Path), zap.String("handler", name))
	}
}

func registerLivenessCheck(app *echo.Echo, logger *zap.Logger, pingers ...Pinger) {
	app.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()
		for _, p := range pingers {
			if p == nil {
				continue
			}
			if err := p.Ping(ctx); err != nil {
				logger.Warn("liveness check failed", zap.Error(err))
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})
}

func registerProfileEndpoints(app *echo.Echo) {
	expvarHandler := expvar.Handler()
	app.GET("/debug/vars", func(c echo.Context) error {
		expvarHandler.ServeHTTP(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/", func(c echo.Context) error {
		pprof.Index(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/:name", func(c echo.Context) error {
		switch c.Param("name") {
		case "cmdline":
			pprof.Cmdline(c.Response().Writer, c.Request())
		case "profile":
			pprof.Profile(c.Response().Writer, c.Request())
		case "symbol":
			pprof.Symbol(c.Response().Writer, c.Request())
		case "trace":
			pprof.Trace(c.Response().Writer, c.Request())
		default:
			pprof.Handler(c.Param("name")).ServeHTTP(c.Response().Writer, c.Request())
		}
		return nil
	})
}
