package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-campus/internal/admins"
	"github.com/odyssey-erp/odyssey-campus/internal/admissions"
	"github.com/odyssey-erp/odyssey-campus/internal/app"
	"github.com/odyssey-erp/odyssey-campus/internal/auth"
	"github.com/odyssey-erp/odyssey-campus/internal/courses"
	jobmetrics "github.com/odyssey-erp/odyssey-campus/internal/jobs"
	"github.com/odyssey-erp/odyssey-campus/internal/observability"
	"github.com/odyssey-erp/odyssey-campus/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-campus/internal/platform/db"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
	"github.com/odyssey-erp/odyssey-campus/internal/students"
	"github.com/odyssey-erp/odyssey-campus/jobs"
)

// container holds the long lived dependencies shared by the subcommands.
type container struct {
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
	queue  *jobs.Client

	metrics *observability.Metrics

	studentRepo *students.PGRepository
	adminRepo   *admins.PGRepository
	courseRepo  *courses.PGRepository
	appRepo     *admissions.PGRepository

	students   *students.Service
	admins     *admins.Service
	courses    *courses.Service
	admissions *admissions.Service
	auth       *auth.Service
}

func connect(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*container, error) {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, err
	}
	redisClient, err := cache.New(ctx, cache.Config{Addr: cfg.RedisAddr})
	if err != nil {
		pool.Close()
		return nil, err
	}
	c := &container{cfg: cfg, logger: logger, pool: pool, redis: redisClient}
	if err := c.build(); err != nil {
		c.close()
		return nil, err
	}
	return c, nil
}

func (c *container) build() error {
	cfg, logger := c.cfg, c.logger

	hasher, err := auth.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("bcrypt: %w", err)
	}
	codec, err := auth.NewTokenCodec(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	c.metrics = observability.NewMetrics()
	notifier := c.notifier()

	c.studentRepo = students.NewRepository(c.pool)
	c.adminRepo = admins.NewRepository(c.pool)
	c.courseRepo = courses.NewRepository(c.pool)
	c.appRepo = admissions.NewRepository(c.pool, c.pool)

	c.students = students.NewService(c.studentRepo, hasher, students.WithAdminEmails(c.adminRepo))
	c.admins = admins.NewService(c.adminRepo)
	c.courses = courses.NewService(c.courseRepo)
	c.admissions = admissions.NewService(admissions.ServiceParams{
		Repo:        c.appRepo,
		Students:    c.studentRepo,
		Courses:     c.courses,
		Hasher:      hasher,
		Idempotency: shared.NewIdempotencyStore(c.pool),
		Approvals:   shared.NewApprovalRecorder(c.pool, logger),
		Audit:       shared.NewAuditLogger(c.pool),
		Notifier:    notifier,
		Logger:      logger,
	})
	c.auth = auth.NewService(auth.ServiceParams{
		Students:  c.studentRepo,
		Registrar: c.students,
		Admins:    c.adminRepo,
		Hasher:    hasher,
		Codec:     codec,
		Denylist:  auth.NewRedisDenylist(c.redis, ""),
		Notifier:  notifier,
		Observer:  c.metrics,
		Logger:    logger,
		Config:    cfg.AuthConfig(),
	})
	return nil
}

// notifier picks the asynq notifier, or the log notifier when the
// notification queue is disabled.
func (c *container) notifier() accountNotifier {
	if !c.cfg.NotificationQueueEnabled {
		c.logger.Warn("notification queue disabled, credentials will be written to the log")
		return jobs.NewLogNotifier(c.logger)
	}
	c.queue = jobs.NewClient(asynq.RedisClientOpt{Addr: c.cfg.RedisAddr})
	return jobs.NewNotifier(c.queue, jobmetrics.NewMetrics(c.metrics.Registerer()), c.logger)
}

type accountNotifier interface {
	admissions.CredentialNotifier
	auth.ResetNotifier
}

func (c *container) migrate(ctx context.Context) error {
	return db.Migrate(ctx, c.pool, c.pool, c.logger)
}

func (c *container) pingDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.pool.Ping(ctx)
}

func (c *container) pingRedis(ctx context.Context) error {
	return cache.Probe(c.redis)(ctx, 2*time.Second)
}

func (c *container) close() {
	if c.queue != nil {
		if err := c.queue.Close(); err != nil {
			c.logger.Warn("queue close", slog.Any("error", err))
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if c.pool != nil {
		c.pool.Close()
	}
}
