package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"lcnetwork/internal/config"
	"lcnetwork/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do for a config.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// schemaPlan is the pair of steps a mode and environment allow.
type schemaPlan struct {
	mode    string
	sql     bool
	auto    bool
	unsafe  bool
	envName string
}

var prodLikeEnvs = []string{"production", "prod", "staging", "stage"}

// planSchema resolves DB_SCHEMA_MODE. Hybrid always runs the SQL files and
// adds AutoMigrate only outside production-like environments; auto in such an
// environment needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	p := schemaPlan{
		mode:    strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		envName: cfg.Env,
	}
	if p.mode == "" {
		p.mode = SchemaModeHybrid
	}
	prodLike := slices.Contains(prodLikeEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))

	switch p.mode {
	case SchemaModeSQL:
		p.sql = true
	case SchemaModeHybrid:
		p.sql, p.auto = true, !prodLike
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return p, fmt.Errorf("DB_SCHEMA_MODE=auto in %q requires DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		p.auto = true
		p.unsafe = cfg.DBAutoMigrateAllowDestructive
	default:
		return p, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", p.mode)
	}
	return p, nil
}

// ApplySchema brings the database up to date. SQL migrations create the
// tables and the Postgres-only partial indexes; AutoMigrate fills in columns
// added to the models since the last migration file.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	p, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if p.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !p.auto {
		return nil
	}

	if p.unsafe {
		middleware.Logger.Warn("auto-migrating with DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true")
	}
	middleware.Logger.Info("running GORM AutoMigrate", slog.String("mode", p.mode), slog.String("env", p.envName))
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the active policy and which migrations are pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	p, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:               p.mode,
		Environment:        p.envName,
		WillRunSQL:         p.sql,
		WillRunAutoMigrate: p.auto,
	}
	if !p.sql {
		return status, nil
	}

	m := NewMigrator(db)
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range applied {
		status.AppliedVersions = append(status.AppliedVersions, a.Version)
	}
	if status.PendingMigrations, err = plan(applied, m.migrations); err != nil {
		return nil, err
	}
	return status, nil
}
