// Package repository implements the record store on top of database/sql,
// backed by PostgreSQL (pgx) or an embedded SQLite file.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/atinyakov/go-url-relay/internal/storage"
)

var drivers = map[Dialect]string{
	DialectPostgres: "pgx",
	DialectSQLite:   "sqlite",
}

// InitDB opens the database described by dsn, checks the connection and
// provisions the schema.
func InitDB(ctx context.Context, dsn string, logger *zap.Logger) (*sql.DB, Dialect, error) {
	dialect, driverDSN, err := DetectDialect(dsn)
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(drivers[dialect], driverDSN)
	if err != nil {
		return nil, "", fmt.Errorf("db: open: %w", err)
	}

	if dialect == DialectPostgres {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("db: ping: %w", err)
	}

	if err := Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, "", err
	}

	logger.Info("Database connected and table ready.", zap.String("dialect", string(dialect)))
	return db, dialect, nil
}

// Migrate creates the proxy table if it is missing. On PostgreSQL two
// instances starting together can both race on CREATE TABLE IF NOT EXISTS;
// the loser's duplicate errors are ignored.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	_, err := db.ExecContext(ctx, queriesFor(dialect).createTable)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) &&
		(pgErr.Code == pgerrcode.DuplicateTable || pgErr.Code == pgerrcode.UniqueViolation) {
		return nil
	}

	return fmt.Errorf("db: migrate: %w", err)
}

// ProxyRepository stores records in the proxy table.
type ProxyRepository struct {
	db     *sql.DB
	q      queries
	logger *zap.Logger
}

func CreateProxyRepository(db *sql.DB, dialect Dialect, logger *zap.Logger) *ProxyRepository {
	return &ProxyRepository{
		db:     db,
		q:      queriesFor(dialect),
		logger: logger,
	}
}

// GetOrCreate inserts r relying on the primary key to reject a duplicate,
// then reads back whichever row holds the id.
func (r *ProxyRepository) GetOrCreate(ctx context.Context, rec storage.ProxyRecord) (storage.ProxyRecord, bool, error) {
	res, err := r.db.ExecContext(ctx, r.q.insert, rec.ID, rec.URL, nullString(rec.UserAgent))
	if err != nil {
		r.logger.Error("insert proxy failed", zap.String("id", rec.ID), zap.Error(err))
		return storage.ProxyRecord{}, false, fmt.Errorf("insert proxy %s: %w", rec.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storage.ProxyRecord{}, false, err
	}

	if n == 1 {
		return rec, true, nil
	}

	existing, err := r.FindByID(ctx, rec.ID)
	if err != nil {
		return storage.ProxyRecord{}, false, err
	}

	return existing, false, nil
}

func (r *ProxyRepository) FindByID(ctx context.Context, id string) (storage.ProxyRecord, error) {
	row := r.db.QueryRowContext(ctx, r.q.selectByID, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ProxyRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ProxyRecord{}, fmt.Errorf("select proxy %s: %w", id, err)
	}

	return rec, nil
}

func (r *ProxyRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ProxyRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (storage.ProxyRecord, error) {
	var (
		rec       storage.ProxyRecord
		userAgent sql.NullString
	)

	if err := s.Scan(&rec.ID, &rec.URL, &userAgent); err != nil {
		return storage.ProxyRecord{}, err
	}
	rec.UserAgent = userAgent.String

	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
