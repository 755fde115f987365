package cmdutil

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/internal/auth"
	"github.com/terraconstructs/taskgate/internal/config"
	"github.com/terraconstructs/taskgate/internal/db/bunx"
	"github.com/terraconstructs/taskgate/internal/repository"
	"github.com/terraconstructs/taskgate/internal/services/iam"
	"github.com/terraconstructs/taskgate/internal/telemetry"
)

// NewCodec builds the token codec from configuration.
func NewCodec(cfg *config.Config) (*auth.Codec, error) {
	key, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	return auth.NewCodec(key, auth.WithTTL(cfg.JWT.TTL))
}

// IssuerBundle bundles the issuer with its DB connection so callers can
// reuse the connection for other repositories.
type IssuerBundle struct {
	Issuer *iam.Issuer
	Codec  *auth.Codec
	DB     *bun.DB
}

// Close releases the underlying database connection.
func (b *IssuerBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	bunx.Close(b.DB)
}

// NewIssuerBundle centralizes issuer construction for CLI commands and servers.
func NewIssuerBundle(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *telemetry.AuthMetrics) (*IssuerBundle, error) {
	codec, err := NewCodec(cfg)
	if err != nil {
		return nil, err
	}
	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	db, err := bunx.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	issuer, err := iam.NewIssuer(iam.Dependencies{
		Users:   repository.NewBunUserRepository(db),
		Codec:   codec,
		Hasher:  hasher,
		Logger:  logger,
		Metrics: metrics,
	}, iam.Config{DependencyTimeout: cfg.DependencyTimeout})
	if err != nil {
		bunx.Close(db)
		return nil, fmt.Errorf("failed to initialize issuer: %w", err)
	}
	return &IssuerBundle{Issuer: issuer, Codec: codec, DB: db}, nil
}
