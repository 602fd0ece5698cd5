package cmd

import (
	"database/sql"
	"net"

	"github.com/nettodev/realms-auth/app/controller"
	"github.com/nettodev/realms-auth/app/middleware"
	"github.com/nettodev/realms-auth/app/repository"
	"github.com/nettodev/realms-auth/app/service"
	"github.com/nettodev/realms-auth/app/token"
	"github.com/nettodev/realms-auth/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP (Echo) server for the authentication service.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogging(cfg)

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	signer, err := token.NewSigner(cfg.JWTSecret, cfg.JWTExpiration)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize token signer")
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	realmRepo := repository.NewRealmRepository(db)

	codes := service.NewCodeIssuer(cfg.CodeLength, cfg.CodeAlphabet)
	mailer := service.NewSMTPMailer(cfg.SMTP)

	userService := service.NewUserService(userRepo, codes, mailer)
	sessionService := service.NewSessionService(db, userRepo, tokenRepo, realmRepo, signer, cfg)
	proofingService := service.NewProofingService(
		userRepo, realmRepo, codes, signer, mailer,
		sessionService.EstablishSession, cfg,
	)
	realmService := service.NewRealmService(realmRepo)

	startHTTPServer(cfg, signer, userRepo, tokenRepo, userService, sessionService, proofingService, realmService)
}

func startHTTPServer(
	cfg *config.Config,
	signer *token.Signer,
	userRepo *repository.UserRepository,
	tokenRepo *repository.TokenRepository,
	userService service.UserService,
	sessionService service.SessionService,
	proofingService service.ProofingService,
	realmService service.RealmService,
) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	userController := controller.NewUserController(userService, sessionService, proofingService)
	realmController := controller.NewRealmController(realmService)
	authMiddleware := middleware.NewAuthMiddleware(signer, userRepo, tokenRepo)

	users := e.Group("/users")
	users.POST("", userController.Register)
	users.POST("/login", userController.Login)
	users.POST("/refresh-tokens", userController.RefreshTokens)
	users.POST("/confirm-email", userController.ConfirmEmail)
	users.POST("/confirm-email/resend", userController.ResendConfirmation)
	users.POST("/recover-pass/request", userController.RequestRecovery)
	users.POST("/recover-pass", userController.CompleteRecovery)

	usersProtected := users.Group("")
	usersProtected.Use(authMiddleware.RequireAuth)
	usersProtected.POST("/logout", userController.Logout)
	usersProtected.GET("/me", userController.GetMe)
	usersProtected.PUT("/me", userController.UpdateProfile)

	realms := e.Group("/realms")
	realms.GET("", realmController.ListRealms)
	realms.GET("/:realmID", realmController.GetRealm)

	httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}

func configureLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
