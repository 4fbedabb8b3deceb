package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/config"
)

type snowflakeClient struct {
	db *sql.DB
}

// Connect opens a Snowflake connection from the archive settings and pings it
// once so bad credentials fail here rather than mid-pipeline. The pool is
// capped at a single connection: the loader deletes and reloads rows by run id
// and is only safe when nothing else writes the same tables concurrently.
func Connect(ctx context.Context, cfg config.Snowflake) (Client, error) {
	sc := &sf.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Warehouse: cfg.Warehouse,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Role:      cfg.Role,
	}
	if cfg.Password == "" && cfg.Token != "" {
		sc.Authenticator = sf.AuthTypeOAuth
		sc.Token = cfg.Token
	}

	dsn, err := sf.DSN(sc)
	if err != nil {
		return nil, fmt.Errorf("snowflake dsn: %w", err)
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("snowflake open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("snowflake connect %s/%s: %w", cfg.Account, cfg.Database, err)
	}
	return &snowflakeClient{db: db}, nil
}

func (c *snowflakeClient) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res), nil
}

func (c *snowflakeClient) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &snowflakeTx{tx: tx}, nil
}

func (c *snowflakeClient) Close() error { return c.db.Close() }

type snowflakeTx struct {
	tx *sql.Tx
}

func (t *snowflakeTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res), nil
}

func (t *snowflakeTx) Commit() error   { return t.tx.Commit() }
func (t *snowflakeTx) Rollback() error { return t.tx.Rollback() }

// rowsAffected tolerates statements that report no count (PUT, REMOVE, DDL).
func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
