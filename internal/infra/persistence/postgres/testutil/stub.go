// Package testutil provides a database/sql driver that fakes the postgres
// store's snapshot table: one JSONB payload per bucket in state(bucket, payload).
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync/atomic"
)

// Statements the postgres store issues, whitespace-normalised.
const (
	CreateStateSQL = "CREATE TABLE IF NOT EXISTS state ( bucket TEXT PRIMARY KEY, payload JSONB NOT NULL )"
	SelectStateSQL = "SELECT bucket, payload FROM state"
	UpsertStateSQL = "INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload"
)

// ErrUnexpectedStatement is returned for any statement outside the snapshot table's vocabulary.
var ErrUnexpectedStatement = errors.New("stub: unexpected statement")

var driverSeq atomic.Int64

// StubConn holds the state table. Upserts issued inside a transaction are
// staged and only land in State on commit.
type StubConn struct {
	Statements []string
	State      map[string][]byte
	RowsErr    error
	FailPing   bool
	FailCreate bool
	FailSelect bool
	FailUpsert bool
	FailBegin  bool
	FailCommit bool

	created bool
	pending map[string][]byte
}

// NewStubDB registers a sql.DB backed by a fresh state table.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{State: make(map[string][]byte)}
	name := fmt.Sprintf("stubstate%d", driverSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Seed writes a committed bucket row and marks the table as existing.
func (c *StubConn) Seed(bucket string, payload []byte) {
	c.created = true
	c.State[bucket] = slices.Clone(payload)
}

// Buckets returns committed bucket names in sorted order.
func (c *StubConn) Buckets() []string {
	out := make([]string, 0, len(c.State))
	for bucket := range c.State {
		out = append(out, bucket)
	}
	slices.Sort(out)
	return out
}

// Created reports whether the state table DDL ran.
func (c *StubConn) Created() bool { return c.created }

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	c.pending = make(map[string][]byte)
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	stmt := normalize(query)
	c.Statements = append(c.Statements, stmt)
	switch stmt {
	case CreateStateSQL:
		if c.FailCreate {
			return nil, fmt.Errorf("create fail")
		}
		c.created = true
		return driver.RowsAffected(0), nil
	case UpsertStateSQL:
		return c.upsert(args)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatement, stmt)
}

func (c *StubConn) upsert(args []driver.NamedValue) (driver.Result, error) {
	if !c.created {
		return nil, fmt.Errorf(`relation "state" does not exist`)
	}
	if c.FailUpsert {
		return nil, fmt.Errorf("upsert fail")
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("upsert expects 2 args, got %d", len(args))
	}
	bucket, ok := args[0].Value.(string)
	if !ok || bucket == "" {
		return nil, fmt.Errorf("bucket must be a non-empty string, got %T", args[0].Value)
	}
	payload, ok := args[1].Value.([]byte)
	if !ok {
		return nil, fmt.Errorf("payload for %s must be []byte, got %T", bucket, args[1].Value)
	}
	if c.pending != nil {
		c.pending[bucket] = slices.Clone(payload)
	} else {
		c.State[bucket] = slices.Clone(payload)
	}
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	stmt := normalize(query)
	c.Statements = append(c.Statements, stmt)
	if stmt != SelectStateSQL {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatement, stmt)
	}
	if !c.created {
		return nil, fmt.Errorf(`relation "state" does not exist`)
	}
	if c.FailSelect {
		return nil, fmt.Errorf("select fail")
	}
	rows := &stubRows{err: c.RowsErr}
	for _, bucket := range c.Buckets() {
		rows.rows = append(rows.rows, []driver.Value{bucket, slices.Clone(c.State[bucket])})
	}
	return rows, nil
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	defer func() { t.conn.pending = nil }()
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	for bucket, payload := range t.conn.pending {
		t.conn.State[bucket] = payload
	}
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.pending = nil
	return nil
}

type stubRows struct {
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func normalize(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
