package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-campus/internal/admins"
	"github.com/odyssey-erp/odyssey-campus/internal/admissions"
	"github.com/odyssey-erp/odyssey-campus/internal/app"
	"github.com/odyssey-erp/odyssey-campus/internal/auth"
	"github.com/odyssey-erp/odyssey-campus/internal/courses"
	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/students"
	"github.com/odyssey-erp/odyssey-campus/internal/system"
	"github.com/odyssey-erp/odyssey-campus/jobs"
)

func serve(ctx context.Context, stop context.CancelFunc, c *container) error {
	cfg, logger := c.cfg, c.logger

	if cfg.MigrateOnStart {
		if err := c.migrate(ctx); err != nil {
			return err
		}
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	systemHandler := system.NewHandler(system.HandlerParams{
		Logger:       logger,
		Version:      cfg.AppVersion,
		DatabaseName: c.pool.Config().ConnConfig.Database,
		Tables: []system.Table{
			{Name: "admins", Counter: c.adminRepo},
			{Name: "applications", Counter: c.appRepo},
			{Name: "courses", Counter: c.courseRepo},
			{Name: "students", Counter: c.studentRepo},
		},
		Checks: []system.Check{
			{Name: "database", Probe: c.pingDatabase},
			{Name: "redis", Probe: c.pingRedis},
		},
		Admins: c.admins,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Authenticator:     c.auth,
		Policy:            rbac.NewPolicy(rbac.CampusRules()...),
		Metrics:           c.metrics,
		AuthHandler:       auth.NewHandler(logger, c.auth, app.LoginLimiter(cfg)),
		StudentsHandler:   students.NewHandler(logger, c.students),
		AdminsHandler:     admins.NewHandler(logger, c.admins),
		CoursesHandler:    courses.NewHandler(logger, c.courses),
		AdmissionsHandler: admissions.NewHandler(logger, c.admissions),
		SystemHandler:     systemHandler,
		JobHandler:        jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
