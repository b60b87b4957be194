package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"sleep-futures/internal/config"
	"sleep-futures/internal/storage"
	chstore "sleep-futures/internal/storage/clickhouse"
	"sleep-futures/internal/storage/csvfile"
	"sleep-futures/internal/storage/memory"
	"sleep-futures/internal/storage/migrations"
	"sleep-futures/internal/storage/postgres"
)

// stores bundles the persistence backends of one process.
type stores struct {
	cache        *csvfile.ObservationStore
	observations storage.ObservationStore // nil without Postgres
	features     storage.FeatureStore
	trades       storage.TradeRecordStore
	summaries    storage.RunSummaryStore

	durable bool // ledger and summaries outlive the process
	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores wires Postgres for observations and the trade ledger and
// ClickHouse for features and run summaries. A backend whose DSN is empty
// falls back to memory. The processed CSV is always the cache.
func openStores(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*stores, error) {
	s := &stores{
		cache:     csvfile.NewObservationStore(cfg.Paths.Processed),
		features:  memory.NewFeatureStore(),
		trades:    memory.NewTradeRecordStore(),
		summaries: memory.NewRunSummaryStore(),
	}

	if dsn := cfg.Store.PostgresDSN; dsn != "" {
		pool, err := postgres.NewPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.observations = postgres.NewObservationStore(pool)
		s.trades = postgres.NewTradeRecordStore(pool)
		logger.Info().Msg("postgres stores ready")
	}

	if dsn := cfg.Store.ClickhouseDSN; dsn != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		s.features = chstore.NewFeatureStore(conn)
		s.summaries = chstore.NewRunSummaryStore(conn)
		logger.Info().Msg("clickhouse stores ready")
	}

	s.durable = cfg.Store.PostgresDSN != "" && cfg.Store.ClickhouseDSN != ""
	if !s.durable {
		logger.Debug().Msg("run ledger kept in memory")
	}
	return s, nil
}
