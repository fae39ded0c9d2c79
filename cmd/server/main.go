package main

import (
	"log"
	"os"

	"github.com/haatos/mybucketapp/internal"
	"github.com/haatos/mybucketapp/internal/handler"
	"github.com/haatos/mybucketapp/internal/logger"
	"github.com/haatos/mybucketapp/internal/provisioner"
	"github.com/haatos/mybucketapp/internal/service"
	"github.com/haatos/mybucketapp/internal/settings"
	"github.com/haatos/mybucketapp/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	_ "modernc.org/sqlite"
)

func main() {
	if err := settings.ReadDotenv(internal.DotEnvPath); err != nil {
		log.Fatal(err)
	}
	settings.Settings = settings.NewSettings()
	logger.Init(os.Stderr, settings.Settings.LogLevel, settings.Settings.LogFormat)
	internal.InitializeConfiguration(settings.Settings.ConfigPath)

	rdb := store.InitDatabase(true)
	defer rdb.Close()
	rwdb := store.InitDatabase(false)
	defer rwdb.Close()
	store.RunMigrations(rwdb, internal.MigrationsDir)

	synthSvc := service.NewSynthService(
		internal.Config,
		store.NewSynthSQLiteStore(rdb, rwdb),
		settings.Settings.OutDir,
	)
	deploySvc := service.NewDeployService(
		synthSvc,
		provisioner.NewAWSClientFactory(settings.Settings.AWSEndpoint),
		store.NewDeploymentSQLiteStore(rdb, rwdb),
	)

	driftScheduler := service.NewScheduler()
	defer driftScheduler.Shutdown()
	if _, err := service.ScheduleDriftChecks(
		driftScheduler, deploySvc, internal.Config.Environments,
	); err != nil {
		log.Fatal(err)
	}
	driftScheduler.Start()

	e := setupEcho()
	e.GET("/healthz", handler.GetHealthz)
	environments := e.Group("/environments")
	handler.SetupEnvironmentRoutes(environments, synthSvc)
	handler.SetupDeployRoutes(environments, deploySvc)

	internal.GracefulShutdown(e, settings.Settings.Port)
}

func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(
		middleware.Recover(),
		middleware.CORSWithConfig(internal.GetCORSConfig()),
		middleware.RateLimiterWithConfig(internal.GetRateLimiterConfig()),
	)
	return e
}
