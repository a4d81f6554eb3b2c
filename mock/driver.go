// Package mock provides recording test doubles for the database layer.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/centraunit/ambientdb/database"
)

var ErrClosed = errors.New("mock: driver closed")

// Reply is a canned statement result.
type Reply struct {
	Columns  []string
	Rows     [][]any
	Affected int64
	Err      error
}

// Driver is an in-memory database.Driver that records every transaction it begins.
type Driver struct {
	// BeginErr, CommitErr and RollbackErr make the matching call fail.
	BeginErr    error
	CommitErr   error
	RollbackErr error
	// Respond produces the reply to a statement. Nil replies with no rows.
	Respond func(query string, args []any) Reply

	mu     sync.Mutex
	txs    []*Tx
	closed bool
}

var _ database.Driver = (*Driver)(nil)

func (d *Driver) Begin(context.Context) (database.Tx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if d.BeginErr != nil {
		return nil, d.BeginErr
	}
	tx := &Tx{driver: d}
	d.txs = append(d.txs, tx)
	return tx, nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Transactions returns every transaction begun so far, oldest first.
func (d *Driver) Transactions() []*Tx {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Tx(nil), d.txs...)
}

// Begun returns the number of transactions begun.
func (d *Driver) Begun() int {
	return len(d.Transactions())
}

// Committed returns the number of committed transactions.
func (d *Driver) Committed() int {
	n := 0
	for _, tx := range d.Transactions() {
		if tx.Committed() {
			n++
		}
	}
	return n
}

// RolledBack returns the number of rolled back transactions.
func (d *Driver) RolledBack() int {
	n := 0
	for _, tx := range d.Transactions() {
		if tx.RolledBack() {
			n++
		}
	}
	return n
}

// Open returns the number of transactions still holding a connection.
func (d *Driver) Open() int {
	n := 0
	for _, tx := range d.Transactions() {
		if !tx.Released() {
			n++
		}
	}
	return n
}

func (d *Driver) reply(query string, args []any) Reply {
	d.mu.Lock()
	respond := d.Respond
	d.mu.Unlock()
	if respond == nil {
		return Reply{}
	}
	return respond(query, args)
}

// Statement is one recorded statement.
type Statement struct {
	Query string
	Args  []any
}

// Tx is a recorded transaction.
type Tx struct {
	driver *Driver

	mu         sync.Mutex
	statements []Statement
	committed  bool
	rolledBack bool
}

func (t *Tx) Query(_ context.Context, query string, args ...any) (database.Rows, error) {
	if err := t.record(query, args); err != nil {
		return nil, err
	}
	r := t.driver.reply(query, args)
	if r.Err != nil {
		return nil, r.Err
	}
	return &Rows{columns: r.Columns, rows: r.Rows, pos: -1}, nil
}

func (t *Tx) Exec(_ context.Context, query string, args ...any) (database.ExecResult, error) {
	if err := t.record(query, args); err != nil {
		return nil, err
	}
	r := t.driver.reply(query, args)
	if r.Err != nil {
		return nil, r.Err
	}
	return result(r.Affected), nil
}

func (t *Tx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.rolledBack {
		return errors.New("mock: transaction already released")
	}
	if err := t.driver.CommitErr; err != nil {
		t.rolledBack = true
		return err
	}
	t.committed = true
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.rolledBack {
		return errors.New("mock: transaction already released")
	}
	t.rolledBack = true
	return t.driver.RollbackErr
}

// Statements returns the statements run on the transaction.
func (t *Tx) Statements() []Statement {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Statement(nil), t.statements...)
}

func (t *Tx) Committed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed
}

func (t *Tx) RolledBack() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rolledBack
}

// Released reports whether the connection went back to the pool.
func (t *Tx) Released() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed || t.rolledBack
}

func (t *Tx) record(query string, args []any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.rolledBack {
		return errors.New("mock: statement on released transaction")
	}
	t.statements = append(t.statements, Statement{Query: query, Args: args})
	return nil
}

// Rows iterates a canned result.
type Rows struct {
	columns []string
	rows    [][]any
	pos     int
}

func (r *Rows) Columns() ([]string, error) { return r.columns, nil }
func (r *Rows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}
func (r *Rows) Values() ([]any, error) { return r.rows[r.pos], nil }
func (r *Rows) Err() error             { return nil }
func (r *Rows) Close() error           { return nil }

type result int64

func (r result) RowsAffected() (int64, error) { return int64(r), nil }
