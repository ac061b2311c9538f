package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresDriver is the database/sql driver name registered by pgx/v5/stdlib.
const PostgresDriver = "pgx"

// PostgresDSN builds a postgres:// URL. Empty sslmode means "disable".
func PostgresDSN(host string, port int, user, password, dbname, sslmode string) string {
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}

// OpenPostgres opens a PostgreSQL database through pgx. Only WithSchema and
// WithoutPing apply.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*sql.DB, error) {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}

	db, err := sql.Open(PostgresDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}
	if cfg.ping {
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: ping: %w", err)
		}
		cfg.ping = false
	}
	if err := finish(db, &cfg); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureDatabase creates database name on the server reached by adminDSN
// when it does not exist yet. It reports whether it created it.
func EnsureDatabase(ctx context.Context, adminDSN, name string) (bool, error) {
	conn, err := pgx.Connect(ctx, adminDSN)
	if err != nil {
		return false, fmt.Errorf("dbopen: connect admin: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("dbopen: lookup database: %w", err)
	}
	if exists {
		return false, nil
	}
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return false, fmt.Errorf("dbopen: create database %s: %w", name, err)
	}
	return true, nil
}
