package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"rental-backend/config"
	"rental-backend/store"
	"rental-backend/store/memory"
	"rental-backend/store/postgres"
)

func newRootCmd() *cobra.Command {
	v := config.New()
	root := &cobra.Command{
		Use:          "rental",
		Short:        "Admin backend of the rental marketplace",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(v), newMigrateCmd(v))
	return root
}

// openStore conecta no Postgres. Sem DATABASE_URL usa o store em memória,
// útil só para desenvolvimento local.
func openStore(ctx context.Context, v *viper.Viper, logger *zap.Logger) (store.Client, func(), error) {
	dsn := v.GetString("database_url")
	if dsn == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		return memory.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	st, err := postgres.NewStore(pool, v.GetString("table_name"))
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return st, pool.Close, nil
}
