package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"contactbook/backend/internal/cache"
	"contactbook/backend/internal/config"
	"contactbook/backend/internal/contacts"
	"contactbook/backend/internal/database"
	"contactbook/backend/internal/events"
	"contactbook/backend/internal/handler"
	"contactbook/backend/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "run the HTTP API",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			if cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			app := fx.New(
				fx.NopLogger,
				fx.Supply(cfg, log),
				// Providers
				fx.Provide(
					newDB,
					hub.NewHub,
					newPublisher,
					newCache,
					newContactsService,
					handler.New,
					handler.NewRouter,
					newHTTPServer,
				),
				// Invocations
				fx.Invoke(registerServerHooks),
			)
			if err := app.Err(); err != nil {
				return err
			}

			app.Run()
			return nil
		},
	}

	cmd.Flags().String("addr", "", "HTTP listen address")
	return cmd
}

func newDB(lc fx.Lifecycle, cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return database.Close(db)
		},
	})
	return db, nil
}

// newPublisher always feeds the in-process hub and adds kafka when brokers
// are configured.
func newPublisher(lc fx.Lifecycle, cfg *config.Config, log *logrus.Logger, h *hub.Hub) (events.Publisher, error) {
	publishers := events.Multi{events.NewHubPublisher(h)}

	if cfg.KafkaBrokers != "" {
		producer, err := events.NewKafkaProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, err
		}
		kafka := events.NewKafkaPublisher(producer, cfg.KafkaTopic, log)
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return kafka.Close()
			},
		})
		publishers = append(publishers, kafka)
		log.WithField("topic", cfg.KafkaTopic).Info("Publishing contact events to kafka")
	}

	return publishers, nil
}

// newCache returns nil when no redis address is configured, which leaves
// caching disabled.
func newCache(lc fx.Lifecycle, cfg *config.Config, log *logrus.Logger) contacts.Cache {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := cache.NewRedisClient(cfg.RedisAddr)
	c := cache.NewRedisCache(client, cfg.CacheTTL)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := c.Ping(ctx); err != nil {
				log.WithError(err).Warn("Redis is not reachable, contacts will be read from the database")
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return c
}

func newContactsService(db *gorm.DB, c contacts.Cache, p events.Publisher, cfg *config.Config, log *logrus.Logger) (*contacts.Service, error) {
	policy, err := contacts.ParsePolicy(cfg.ContactPolicy)
	if err != nil {
		return nil, err
	}
	return contacts.NewService(db,
		contacts.WithCache(c),
		contacts.WithPublisher(p),
		contacts.WithLogger(log),
		contacts.WithDefaultPolicy(policy),
	), nil
}

func newHTTPServer(cfg *config.Config, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// registerServerHooks registers lifecycle hooks for the HTTP server
func registerServerHooks(lc fx.Lifecycle, srv *http.Server, log *logrus.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Start server in a separate goroutine
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.WithError(err).Error("Server failed")
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			log.WithField("addr", srv.Addr).Info("Server is running")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			log.Info("Shutting down server...")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Error("Server forced to shutdown")
				return err
			}
			log.Info("Server exited gracefully")
			return nil
		},
	})
}
