// Package tracing persists controller events to a SQLite database
package tracing

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/anggasct/pelican"
)

// DefaultBatchSize is the number of buffered events that triggers a write
const DefaultBatchSize = 1000

// DefaultQueueSize bounds the events waiting for the writer goroutine
const DefaultQueueSize = 4096

// SQLiteTraceWriter is an event sink that writes events to a SQLite database.
// Log only enqueues; a background goroutine batches events and writes each
// batch in a single transaction. Events arriving while the queue is full, before
// Init or after Close are dropped and counted.
type SQLiteTraceWriter struct {
	*sql.DB
	eventStatement      *sql.Stmt
	transitionStatement *sql.Stmt

	dbName    string
	batchSize atomic.Int64
	queueSize int

	mutex   sync.RWMutex
	started bool
	closed  bool
	queue   chan pelican.Event
	flushes chan chan error
	done    chan struct{}

	errMutex sync.Mutex
	err      error
	closeErr error

	dropped atomic.Uint64
	written atomic.Uint64
	failed  atomic.Uint64
}

// NewSQLiteTraceWriter creates a new SQLiteTraceWriter. An empty path picks a
// unique file name in the working directory. The writer is closed, writing
// what is still queued, when the process exits through atexit.
func NewSQLiteTraceWriter(path string) *SQLiteTraceWriter {
	w := &SQLiteTraceWriter{
		dbName:    path,
		queueSize: DefaultQueueSize,
	}
	w.batchSize.Store(DefaultBatchSize)

	atexit.Register(func() { _ = w.Close() })

	return w
}

// SetBatchSize changes the number of events written per transaction
func (t *SQLiteTraceWriter) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	t.batchSize.Store(int64(n))
}

// SetQueueSize changes the queue capacity. It has no effect after Init.
func (t *SQLiteTraceWriter) SetQueueSize(n int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.started {
		return
	}
	if n < 1 {
		n = 1
	}
	t.queueSize = n
}

// Path returns the database file name
func (t *SQLiteTraceWriter) Path() string {
	return t.dbName + ".sqlite3"
}

// Init creates the database and its tables and starts the writer goroutine
func (t *SQLiteTraceWriter) Init() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed {
		return fmt.Errorf("trace writer for %s is closed", t.Path())
	}
	if t.started {
		return fmt.Errorf("trace writer for %s already initialized", t.Path())
	}

	if err := t.createDatabase(xid.New().String()); err != nil {
		return err
	}
	if err := t.createTables(); err != nil {
		return err
	}
	if err := t.prepareStatements(); err != nil {
		return err
	}

	t.queue = make(chan pelican.Event, t.queueSize)
	t.flushes = make(chan chan error)
	t.done = make(chan struct{})
	t.started = true
	go t.loop()
	return nil
}

// Log implements pelican.EventSink. It never waits on the database.
func (t *SQLiteTraceWriter) Log(event pelican.Event) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	if !t.started || t.closed {
		t.dropped.Add(1)
		return
	}

	select {
	case t.queue <- event:
	default:
		t.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded without being queued
func (t *SQLiteTraceWriter) Dropped() uint64 { return t.dropped.Load() }

// Written returns the number of events committed to the database
func (t *SQLiteTraceWriter) Written() uint64 { return t.written.Load() }

// Failed returns the number of events lost to a failed transaction
func (t *SQLiteTraceWriter) Failed() uint64 { return t.failed.Load() }

// Err returns the first error raised by a background write
func (t *SQLiteTraceWriter) Err() error {
	t.errMutex.Lock()
	defer t.errMutex.Unlock()
	return t.err
}

// Flush waits until every event queued so far is written
func (t *SQLiteTraceWriter) Flush() error {
	t.mutex.RLock()
	if !t.started || t.closed {
		t.mutex.RUnlock()
		return nil
	}
	flushes, done := t.flushes, t.done
	t.mutex.RUnlock()

	reply := make(chan error)
	select {
	case flushes <- reply:
		return <-reply
	case <-done:
		return nil
	}
}

func (t *SQLiteTraceWriter) loop() {
	defer close(t.done)

	var batch []pelican.Event
	for {
		select {
		case event, ok := <-t.queue:
			if !ok {
				t.closeErr = t.writeBatch(batch)
				return
			}
			batch = append(batch, event)
			if int64(len(batch)) >= t.batchSize.Load() {
				_ = t.writeBatch(batch)
				batch = batch[:0]
			}
		case reply := <-t.flushes:
			for len(t.queue) > 0 {
				batch = append(batch, <-t.queue)
			}
			reply <- t.writeBatch(batch)
			batch = batch[:0]
		}
	}
}

// writeBatch commits batch in one transaction. A failed batch is discarded.
func (t *SQLiteTraceWriter) writeBatch(batch []pelican.Event) error {
	if len(batch) == 0 {
		return nil
	}

	err := t.insert(batch)
	if err != nil {
		t.failed.Add(uint64(len(batch)))
		t.errMutex.Lock()
		if t.err == nil {
			t.err = err
		}
		t.errMutex.Unlock()
		return err
	}
	t.written.Add(uint64(len(batch)))
	return nil
}

func (t *SQLiteTraceWriter) insert(batch []pelican.Event) error {
	tx, err := t.Begin()
	if err != nil {
		return fmt.Errorf("cannot begin trace transaction: %w", err)
	}

	eventStmt := tx.Stmt(t.eventStatement)
	transitionStmt := tx.Stmt(t.transitionStatement)
	for _, event := range batch {
		_, err := eventStmt.Exec(
			event.ID,
			string(event.Kind),
			event.Severity.String(),
			int64(event.At),
			event.Phase.String(),
			event.Request.String(),
			event.Signals.String(),
			event.Message,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("cannot insert event %s: %w", event.ID, err)
		}

		if event.Kind != pelican.EventTransition {
			continue
		}
		_, err = transitionStmt.Exec(
			event.ID,
			event.From.String(),
			event.To.String(),
			int(event.Cause),
			int64(event.At),
			event.Elapsed.Milliseconds(),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("cannot insert transition %s: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit trace transaction: %w", err)
	}
	return nil
}

// Close writes the queued events, stops the writer goroutine and closes the
// database. Closing twice is a no-op.
func (t *SQLiteTraceWriter) Close() error {
	t.mutex.Lock()
	if t.closed {
		t.mutex.Unlock()
		return nil
	}
	t.closed = true
	if !t.started {
		defer t.mutex.Unlock()
		if t.DB != nil {
			return t.DB.Close()
		}
		return nil
	}
	close(t.queue)
	t.mutex.Unlock()

	<-t.done
	err := t.closeErr
	if closeErr := t.DB.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (t *SQLiteTraceWriter) createDatabase(fileName string) error {
	if t.dbName == "" {
		t.dbName = "pelican_trace_" + fileName
	}

	filename := t.Path()
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", filename, err)
	}

	t.DB = db
	return nil
}

func (t *SQLiteTraceWriter) createTables() error {
	statements := []string{
		`
		create table event
		(
			event_id varchar(64)  not null primary key,
			kind     varchar(32)  not null,
			severity varchar(16)  not null,
			at_ms    integer      not null,
			phase    varchar(32)  not null,
			request  varchar(16)  not null,
			signals  varchar(16)  not null,
			message  varchar(256) default ''
		);
		`,
		`create index event_kind_index on event (kind);`,
		`create index event_at_index on event (at_ms);`,
		`
		create table transition
		(
			event_id   varchar(64) not null references event (event_id),
			from_phase varchar(32) not null,
			to_phase   varchar(32) not null,
			cause      integer     not null,
			at_ms      integer     not null,
			elapsed_ms integer     not null
		);
		`,
		`create index transition_at_index on transition (at_ms);`,
	}

	for _, query := range statements {
		if _, err := t.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %q: %w", query, err)
		}
	}
	return nil
}

func (t *SQLiteTraceWriter) prepareStatements() error {
	stmt, err := t.Prepare(`INSERT INTO event VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	t.eventStatement = stmt

	stmt, err = t.Prepare(`INSERT INTO transition VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	t.transitionStatement = stmt
	return nil
}

// SQLiteTraceReader is a reader that reads trace data from a SQLite database.
type SQLiteTraceReader struct {
	*sql.DB

	filename string
}

// NewSQLiteTraceReader creates a new SQLiteTraceReader.
func NewSQLiteTraceReader(filename string) *SQLiteTraceReader {
	return &SQLiteTraceReader{
		filename: filename,
	}
}

// Init establishes a connection to the database.
func (r *SQLiteTraceReader) Init() error {
	db, err := sql.Open("sqlite3", r.filename)
	if err != nil {
		return err
	}

	r.DB = db
	return nil
}

// ReadTransitions returns the recorded transitions in commit order
func (r *SQLiteTraceReader) ReadTransitions() ([]pelican.Transition, error) {
	rows, err := r.Query(`
		SELECT from_phase, to_phase, cause, at_ms, elapsed_ms
		FROM transition
		ORDER BY at_ms, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []pelican.Transition
	for rows.Next() {
		var (
			fromName, toName string
			cause            int
			at, elapsed      int64
		)
		if err := rows.Scan(&fromName, &toName, &cause, &at, &elapsed); err != nil {
			return nil, err
		}

		from, err := pelican.ParsePhase(fromName)
		if err != nil {
			return nil, err
		}
		to, err := pelican.ParsePhase(toName)
		if err != nil {
			return nil, err
		}

		transitions = append(transitions, pelican.Transition{
			From:    from,
			To:      to,
			Cause:   pelican.Cause(cause),
			At:      pelican.Timestamp(at),
			Elapsed: time.Duration(elapsed) * time.Millisecond,
		})
	}
	return transitions, rows.Err()
}

// CountEvents returns the number of recorded events of the given kind
func (r *SQLiteTraceReader) CountEvents(kind pelican.EventKind) (int, error) {
	var count int
	err := r.QueryRow(`SELECT COUNT(*) FROM event WHERE kind = ?`, string(kind)).Scan(&count)
	return count, err
}
