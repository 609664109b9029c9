// Package store persists strategy specs, running-instance snapshots, backtest
// reports and candle history in DuckDB.
package store

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// Store wraps one DuckDB database. It is safe for concurrent use; DuckDB
// serializes writers internally.
type Store struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	log *logger.Logger
}

// NewStore opens (or creates) the database at path. Use ":memory:" for an
// ephemeral store in tests.
func NewStore(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to open database", err)
	}

	store := &Store{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log: log,
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS strategy_specs (
			id TEXT,
			version TEXT,
			name TEXT,
			spec TEXT,
			updated_at TIMESTAMP,
			PRIMARY KEY (id, version)
		)`,
		`CREATE TABLE IF NOT EXISTS running_strategies (
			user_id TEXT,
			strategy_id TEXT,
			exchange TEXT,
			account_type TEXT,
			snapshot TEXT,
			updated_at TIMESTAMP,
			PRIMARY KEY (user_id, strategy_id, exchange, account_type)
		)`,
		`CREATE TABLE IF NOT EXISTS backtest_results (
			id TEXT PRIMARY KEY,
			strategy_id TEXT,
			version TEXT,
			symbol TEXT,
			timeframe TEXT,
			created_at TIMESTAMP,
			report TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT,
			timeframe TEXT,
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			PRIMARY KEY (symbol, timeframe, time)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create tables", err)
		}
	}

	return nil
}

// SaveSpec persists one version of a strategy spec. Saving the same version
// twice overwrites it.
func (s *Store) SaveSpec(spec *strategy.Spec) error {
	data, err := spec.Marshal()
	if err != nil {
		return err
	}

	query := s.sq.
		Insert("strategy_specs").
		Columns("id", "version", "name", "spec", "updated_at").
		Values(spec.ID, spec.Version, spec.Name, string(data), time.Now().UTC()).
		Suffix("ON CONFLICT (id, version) DO UPDATE SET name = excluded.name, spec = excluded.spec, updated_at = excluded.updated_at").
		RunWith(s.db)

	if _, err := query.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to save spec", err)
	}

	return nil
}

// GetSpec loads one spec version.
func (s *Store) GetSpec(id, version string) (*strategy.Spec, error) {
	row := s.sq.
		Select("spec").
		From("strategy_specs").
		Where(squirrel.Eq{"id": id, "version": version}).
		RunWith(s.db).
		QueryRow()

	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Newf(errors.ErrCodeDataNotFound, "spec %s version %s not found", id, version)
		}

		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to load spec", err)
	}

	return strategy.ParseSpec([]byte(data))
}

// LatestSpec loads the highest stored version of a spec by semver order.
func (s *Store) LatestSpec(id string) (*strategy.Spec, error) {
	rows, err := s.sq.
		Select("version").
		From("strategy_specs").
		Where(squirrel.Eq{"id": id}).
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list spec versions", err)
	}
	defer rows.Close()

	latest := ""

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan spec version", err)
		}

		if latest == "" {
			latest = version

			continue
		}

		cmp, err := strategy.CompareVersions(version, latest)
		if err != nil {
			return nil, err
		}

		if cmp > 0 {
			latest = version
		}
	}

	if rows.Err() != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate spec versions", rows.Err())
	}

	if latest == "" {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "spec %s not found", id)
	}

	return s.GetSpec(id, latest)
}

// ListSpecIDs returns the distinct stored spec IDs.
func (s *Store) ListSpecIDs() ([]string, error) {
	rows, err := s.sq.
		Select("DISTINCT id").
		From("strategy_specs").
		OrderBy("id").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list specs", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan spec id", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// SaveSnapshot upserts the running-instance snapshot for its account and
// strategy key.
func (s *Store) SaveSnapshot(snapshot *types.StrategySnapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to marshal snapshot", err)
	}

	query := s.sq.
		Insert("running_strategies").
		Columns("user_id", "strategy_id", "exchange", "account_type", "snapshot", "updated_at").
		Values(snapshot.UserID, snapshot.StrategyID, snapshot.Exchange, snapshot.AccountType, string(data), time.Now().UTC()).
		Suffix("ON CONFLICT (user_id, strategy_id, exchange, account_type) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at").
		RunWith(s.db)

	if _, err := query.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to save snapshot", err)
	}

	return nil
}

// GetSnapshot loads the snapshot for one instance key.
func (s *Store) GetSnapshot(userID, strategyID, exchange, accountType string) (*types.StrategySnapshot, error) {
	row := s.sq.
		Select("snapshot").
		From("running_strategies").
		Where(squirrel.Eq{
			"user_id":      userID,
			"strategy_id":  strategyID,
			"exchange":     exchange,
			"account_type": accountType,
		}).
		RunWith(s.db).
		QueryRow()

	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Newf(errors.ErrCodeDataNotFound, "no snapshot for %s/%s/%s/%s", userID, strategyID, exchange, accountType)
		}

		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to load snapshot", err)
	}

	var snapshot types.StrategySnapshot
	if err := yaml.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to unmarshal snapshot", err)
	}

	return &snapshot, nil
}

// ListSnapshots returns all stored instance snapshots.
func (s *Store) ListSnapshots() ([]*types.StrategySnapshot, error) {
	rows, err := s.sq.
		Select("snapshot").
		From("running_strategies").
		OrderBy("user_id", "strategy_id").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list snapshots", err)
	}
	defer rows.Close()

	var snapshots []*types.StrategySnapshot

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan snapshot", err)
		}

		var snapshot types.StrategySnapshot
		if err := yaml.Unmarshal([]byte(data), &snapshot); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to unmarshal snapshot", err)
		}

		snapshots = append(snapshots, &snapshot)
	}

	return snapshots, rows.Err()
}

// DeleteSnapshot removes the snapshot for one instance key. Deleting a
// missing snapshot is a no-op.
func (s *Store) DeleteSnapshot(userID, strategyID, exchange, accountType string) error {
	query := s.sq.
		Delete("running_strategies").
		Where(squirrel.Eq{
			"user_id":      userID,
			"strategy_id":  strategyID,
			"exchange":     exchange,
			"account_type": accountType,
		}).
		RunWith(s.db)

	if _, err := query.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to delete snapshot", err)
	}

	return nil
}

// SaveBacktestReport persists a full backtest report.
func (s *Store) SaveBacktestReport(report *types.BacktestReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to marshal report", err)
	}

	query := s.sq.
		Insert("backtest_results").
		Columns("id", "strategy_id", "version", "symbol", "timeframe", "created_at", "report").
		Values(report.ID, report.StrategyID, report.Version, report.Symbol, string(report.Timeframe), report.Timestamp, string(data)).
		RunWith(s.db)

	if _, err := query.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to save backtest report", err)
	}

	return nil
}

// GetBacktestReport loads one report by ID.
func (s *Store) GetBacktestReport(id string) (*types.BacktestReport, error) {
	row := s.sq.
		Select("report").
		From("backtest_results").
		Where(squirrel.Eq{"id": id}).
		RunWith(s.db).
		QueryRow()

	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Newf(errors.ErrCodeDataNotFound, "backtest report %s not found", id)
		}

		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to load backtest report", err)
	}

	var report types.BacktestReport
	if err := yaml.Unmarshal([]byte(data), &report); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to unmarshal backtest report", err)
	}

	return &report, nil
}

// ListBacktestReports returns report IDs for one strategy, newest first.
func (s *Store) ListBacktestReports(strategyID string) ([]string, error) {
	rows, err := s.sq.
		Select("id").
		From("backtest_results").
		Where(squirrel.Eq{"strategy_id": strategyID}).
		OrderBy("created_at DESC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list backtest reports", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan report id", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// SaveCandles inserts candles, replacing any existing bar with the same key.
func (s *Store) SaveCandles(timeframe types.Timeframe, candles []types.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	for _, c := range candles {
		query := s.sq.
			Insert("candles").
			Columns("symbol", "timeframe", "time", "open", "high", "low", "close", "volume").
			Values(c.Symbol, string(timeframe), c.Time, c.Open, c.High, c.Low, c.Close, c.Volume).
			Suffix("ON CONFLICT (symbol, timeframe, time) DO UPDATE SET open = excluded.open, high = excluded.high, low = excluded.low, close = excluded.close, volume = excluded.volume").
			RunWith(tx)

		if _, err := query.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert candle", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit candles", err)
	}

	s.log.Debug("saved candles",
		zap.String("symbol", candles[0].Symbol),
		zap.String("timeframe", string(timeframe)),
		zap.Int("count", len(candles)))

	return nil
}

// GetCandles loads candles for [start, end) in ascending time order.
func (s *Store) GetCandles(symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Candle, error) {
	rows, err := s.sq.
		Select("symbol", "time", "open", "high", "low", "close", "volume").
		From("candles").
		Where(squirrel.Eq{"symbol": symbol, "timeframe": string(timeframe)}).
		Where(squirrel.GtOrEq{"time": start}).
		Where(squirrel.Lt{"time": end}).
		OrderBy("time ASC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query candles", err)
	}
	defer rows.Close()

	var candles []types.Candle

	for rows.Next() {
		var c types.Candle
		if err := rows.Scan(&c.Symbol, &c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan candle", err)
		}

		c.Time = c.Time.UTC()
		candles = append(candles, c)
	}

	return candles, rows.Err()
}
