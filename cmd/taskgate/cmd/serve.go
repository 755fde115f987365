package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terraconstructs/taskgate/cmd/taskgate/cmd/cmdutil"
	"github.com/terraconstructs/taskgate/internal/config"
	"github.com/terraconstructs/taskgate/internal/db/bunx"
	"github.com/terraconstructs/taskgate/internal/middleware"
	"github.com/terraconstructs/taskgate/internal/policy"
	"github.com/terraconstructs/taskgate/internal/rbac"
	"github.com/terraconstructs/taskgate/internal/repository"
	"github.com/terraconstructs/taskgate/internal/server"
	"github.com/terraconstructs/taskgate/internal/services/submissions"
	"github.com/terraconstructs/taskgate/internal/services/tasks"
	"github.com/terraconstructs/taskgate/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:       "serve {gateway|users|tasks|submissions|all}",
	Short:     "Start the gateway or an internal service",
	Long:      `Starts one component, or all four in one process with "all".`,
	ValidArgs: []string{"gateway", "users", "tasks", "submissions", "all"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		components := []string{args[0]}
		if args[0] == "all" {
			components = []string{"users", "tasks", "submissions", "gateway"}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		prom, err := telemetry.InitPrometheus()
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := prom.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics shutdown failed", zap.Error(err))
			}
		}()

		b := &builder{cfg: cfg, logger: logger, metricsHandler: prom.Handler()}
		defer b.close()

		var servers []*http.Server
		for _, name := range components {
			srv, err := b.build(ctx, name)
			if err != nil {
				return fmt.Errorf("build %s: %w", name, err)
			}
			servers = append(servers, srv)
		}
		return runServers(ctx, logger, servers)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// builder constructs components, sharing the DB connection and the
// authorizer between them when several run in one process.
type builder struct {
	cfg            *config.Config
	logger         *zap.Logger
	metricsHandler http.Handler

	db         *bun.DB
	authorizer *rbac.Authorizer
	bundle     *cmdutil.IssuerBundle
}

func (b *builder) close() {
	if b.bundle != nil {
		b.bundle.Close()
	}
	if b.db != nil && (b.bundle == nil || b.db != b.bundle.DB) {
		bunx.Close(b.db)
	}
}

func (b *builder) database(ctx context.Context) (*bun.DB, error) {
	if b.db != nil {
		return b.db, nil
	}
	db, err := bunx.NewDB(ctx, b.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	b.db = db
	return db, nil
}

func (b *builder) sharedAuthorizer() (*rbac.Authorizer, error) {
	if b.authorizer != nil {
		return b.authorizer, nil
	}
	a, err := rbac.NewAuthorizer(rbac.DefaultGrants())
	if err != nil {
		return nil, err
	}
	b.authorizer = a
	return a, nil
}

func (b *builder) build(ctx context.Context, name string) (*http.Server, error) {
	authorizer, err := b.sharedAuthorizer()
	if err != nil {
		return nil, err
	}
	serverMetrics, err := telemetry.NewServerMetrics(name)
	if err != nil {
		return nil, err
	}
	authMetrics, err := telemetry.NewAuthMetrics()
	if err != nil {
		return nil, err
	}
	log := b.logger.With(zap.String("service", name))

	var (
		handler http.Handler
		addr    string
	)
	switch name {
	case "gateway":
		codec, err := cmdutil.NewCodec(b.cfg)
		if err != nil {
			return nil, err
		}
		entries, err := b.cfg.PolicyEntries()
		if err != nil {
			return nil, err
		}
		table, err := policy.NewTable(entries)
		if err != nil {
			return nil, err
		}
		handler, err = server.NewGatewayRouter(server.GatewayOptions{
			Codec:      codec,
			Policy:     table,
			Authorizer: authorizer,
			CORS: middleware.CORSOptions{
				AllowedOrigins:   b.cfg.CORS.AllowedOrigins,
				AllowedMethods:   b.cfg.CORS.AllowedMethods,
				AllowedHeaders:   b.cfg.CORS.AllowedHeaders,
				AllowCredentials: b.cfg.CORS.AllowCredentials,
				MaxAge:           b.cfg.CORS.MaxAge,
			},
			Upstreams: server.Upstreams{
				Users:       b.cfg.Users.URL,
				Tasks:       b.cfg.Tasks.URL,
				Submissions: b.cfg.Submissions.URL,
			},
			Logger:         log,
			Metrics:        serverMetrics,
			AuthMetrics:    authMetrics,
			MetricsHandler: b.metricsHandler,
		})
		if err != nil {
			return nil, err
		}
		addr = b.cfg.Gateway.Addr

	case "users":
		if b.bundle == nil {
			bundle, err := cmdutil.NewIssuerBundle(ctx, b.cfg, log, authMetrics)
			if err != nil {
				return nil, err
			}
			b.bundle = bundle
			if b.db == nil {
				b.db = bundle.DB
			}
		}
		handler, err = server.NewUsersRouter(server.UsersOptions{
			Issuer:         b.bundle.Issuer,
			Authorizer:     authorizer,
			Logger:         log,
			Metrics:        serverMetrics,
			MetricsHandler: b.metricsHandler,
		})
		if err != nil {
			return nil, err
		}
		addr = b.cfg.Users.Addr

	case "tasks":
		db, err := b.database(ctx)
		if err != nil {
			return nil, err
		}
		handler, err = server.NewTasksRouter(server.TasksOptions{
			Service:        tasks.NewService(repository.NewBunTaskRepository(db), log),
			Authorizer:     authorizer,
			Logger:         log,
			Metrics:        serverMetrics,
			MetricsHandler: b.metricsHandler,
		})
		if err != nil {
			return nil, err
		}
		addr = b.cfg.Tasks.Addr

	case "submissions":
		db, err := b.database(ctx)
		if err != nil {
			return nil, err
		}
		client, err := submissions.NewHTTPTaskClient(b.cfg.Tasks.URL, b.cfg.DependencyTimeout)
		if err != nil {
			return nil, err
		}
		handler, err = server.NewSubmissionsRouter(server.SubmissionsOptions{
			Service:        submissions.NewService(repository.NewBunSubmissionRepository(db), client, log),
			Authorizer:     authorizer,
			Logger:         log,
			Metrics:        serverMetrics,
			MetricsHandler: b.metricsHandler,
		})
		if err != nil {
			return nil, err
		}
		addr = b.cfg.Submissions.Addr

	default:
		return nil, fmt.Errorf("unknown component %q", name)
	}

	return &http.Server{
		Addr:         addr,
		Handler:      server.NewH2CHandler(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, nil
}

// runServers serves until ctx is cancelled or one server fails, then shuts
// all of them down.
func runServers(ctx context.Context, logger *zap.Logger, servers []*http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
