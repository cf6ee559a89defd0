package components

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/relloyd/visitload/constants"
	h "github.com/relloyd/visitload/helper"
	"github.com/relloyd/visitload/logger"
	"github.com/relloyd/visitload/rdbms"
	"github.com/relloyd/visitload/rdbms/shared"
	"github.com/relloyd/visitload/rdbms/shared/mocks"
	"github.com/relloyd/visitload/stats"
	"github.com/relloyd/visitload/stream"
)

func makeBatch(n int) stream.Batch {
	b := make(stream.Batch, n)
	for idx := range b {
		b[idx] = MapUrlToAttributionRecord(fmt.Sprintf("http://x/?a_bucket=b%d&a_type=t&a_g_keyword=k%d", idx, idx))
	}
	return b
}

type sleepRecorder struct {
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.sleeps = append(s.sleeps, d)
}

func newMockLoaderConfig(log logger.Logger, open shared.OpenConnectionFunc, sr *sleepRecorder) *TableReplaceLoaderConfig {
	return &TableReplaceLoaderConfig{
		Log:                         log,
		Name:                        "test loader",
		ConnectionDetails:           shared.ConnectionDetails{Type: constants.ConnectionTypePostgres, Dsn: "postgres://u:p@localhost/visits"},
		OpenConnectionFn:            open,
		SqlStatementGeneratorConfig: shared.SqlStatementGeneratorConfig{OutputTable: constants.DefaultTableName},
		MaxAttempts:                 5,
		RetryDelay:                  5 * time.Second,
		IsTransientFn:               rdbms.IsTransientError,
		SleepFn:                     sr.sleep,
	}
}

// sqlRecorder matches SQL text starting with prefix and saves it.
type sqlRecorder struct {
	prefix     string
	statements *[]string
}

func (m *sqlRecorder) Matches(x interface{}) bool {
	q, ok := x.(string)
	if !ok || !strings.HasPrefix(q, m.prefix) {
		return false
	}
	*m.statements = append(*m.statements, q)
	return true
}

func (m *sqlRecorder) String() string {
	return "SQL starting with " + m.prefix
}

// expectAttempt sets up a mock session whose insert returns insertErr.
// Every attempt must close the session and roll back unless it committed.
func expectAttempt(ctrl *gomock.Controller, statements *[]string, insertErr error) *mocks.MockConnector {
	conn := mocks.NewMockConnector(ctrl)
	tx := mocks.NewMockTransacter(ctrl)
	conn.EXPECT().GetDmlGenerator().Return(shared.NewPostgresDmlGenerator()).AnyTimes()
	conn.EXPECT().GetType().Return(constants.ConnectionTypePostgres).AnyTimes()
	conn.EXPECT().BeginTx(gomock.Any()).Return(tx, nil)
	tx.EXPECT().ExecContext(gomock.Any(), &sqlRecorder{prefix: "truncate", statements: statements}).Return(nil, nil)
	tx.EXPECT().ExecContext(gomock.Any(), &sqlRecorder{prefix: "insert", statements: statements}, gomock.Any()).Return(nil, insertErr)
	if insertErr == nil {
		tx.EXPECT().Commit().Return(nil)
	} else {
		tx.EXPECT().Rollback().Return(nil)
	}
	conn.EXPECT().Close().Return(nil)
	return conn
}

func TestTableReplaceLoaderSuccess(t *testing.T) {
	log := logger.NewLogger("visitload", "debug", true)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	var statements []string
	conn := expectAttempt(ctrl, &statements, nil)
	sr := &sleepRecorder{}
	opens := 0
	cfg := newMockLoaderConfig(log, func(ctx context.Context, log logger.Logger, d shared.ConnectionDetails) (shared.Connector, error) {
		opens++
		return conn, nil
	}, sr)
	st := stats.NewRunStats()
	cfg.Stats = st
	l, err := NewTableReplaceLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	n, err := l.Load(context.Background(), makeBatch(3))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows; got %d", n)
	}
	if opens != 1 || len(sr.sleeps) != 0 {
		t.Fatalf("expected 1 attempt and no sleeps; got %d attempts and %d sleeps", opens, len(sr.sleeps))
	}
	if statements[0] != "truncate table customer_visits" {
		t.Fatalf("expected truncate first; got %q", statements[0])
	}
	if !strings.HasPrefix(statements[1], "insert into customer_visits (ad_bucket,ad_type,ad_source,schema_version,ad_campaign_id,ad_keyword,ad_group_id,ad_creative) values ( $1,") {
		t.Fatalf("unexpected insert statement %q", statements[1])
	}
	if l.State() != LoadStateCommitted {
		t.Fatalf("expected state Committed; got %v", l.State())
	}
	if s := st.GetStats(""); s.RowsLoaded != 3 || s.LoadAttempts != 1 || s.FailedAttempts != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestTableReplaceLoaderRetriesThenSucceeds(t *testing.T) {
	log := logger.NewLogger("visitload", "debug", true)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	var statements []string
	conn := expectAttempt(ctrl, &statements, nil)
	sr := &sleepRecorder{}
	opens := 0
	cfg := newMockLoaderConfig(log, func(ctx context.Context, log logger.Logger, d shared.ConnectionDetails) (shared.Connector, error) {
		opens++
		if opens <= 2 {
			return nil, &pgconn.PgError{Code: "57P03", Message: "the database system is starting up"}
		}
		return conn, nil
	}, sr)
	l, err := NewTableReplaceLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	n, err := l.Load(context.Background(), makeBatch(10))
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Fatalf("expected 10 rows; got %d", n)
	}
	if opens != 3 {
		t.Fatalf("expected 3 attempts; got %d", opens)
	}
	if len(sr.sleeps) != 2 || sr.sleeps[0] != 5*time.Second || sr.sleeps[1] != 5*time.Second {
		t.Fatalf("expected two 5s sleeps; got %v", sr.sleeps)
	}
}

func TestTableReplaceLoaderExhaustsRetries(t *testing.T) {
	log := logger.NewLogger("visitload", "debug", true)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	var statements []string
	sr := &sleepRecorder{}
	opens := 0
	cfg := newMockLoaderConfig(log, func(ctx context.Context, log logger.Logger, d shared.ConnectionDetails) (shared.Connector, error) {
		opens++
		return expectAttempt(ctrl, &statements, driver.ErrBadConn), nil // Close and Rollback are expected every time.
	}, sr)
	l, err := NewTableReplaceLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	_, err = l.Load(context.Background(), makeBatch(2))
	if !errors.Is(err, h.ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted; got %v", err)
	}
	if !errors.Is(err, driver.ErrBadConn) {
		t.Fatalf("expected the last cause to be kept; got %v", err)
	}
	var exhausted *h.RetriesExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Attempts != 5 {
		t.Fatalf("expected 5 attempts in error; got %v", err)
	}
	if opens != 5 || len(sr.sleeps) != 5 {
		t.Fatalf("expected 5 attempts and 5 sleeps; got %d and %d", opens, len(sr.sleeps))
	}
	if l.State() != LoadStateExhausted {
		t.Fatalf("expected state Exhausted; got %v", l.State())
	}
}

func TestTableReplaceLoaderFailsFast(t *testing.T) {
	log := logger.NewLogger("visitload", "debug", true)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	var statements []string
	sr := &sleepRecorder{}
	opens := 0
	cause := &pgconn.PgError{Code: "42P01", Message: `relation "customer_visits" does not exist`}
	cfg := newMockLoaderConfig(log, func(ctx context.Context, log logger.Logger, d shared.ConnectionDetails) (shared.Connector, error) {
		opens++
		return expectAttempt(ctrl, &statements, cause), nil
	}, sr)
	l, err := NewTableReplaceLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	_, err = l.Load(context.Background(), makeBatch(2))
	if err == nil || errors.Is(err, h.ErrRetriesExhausted) {
		t.Fatalf("expected a non-retried error; got %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "42P01" {
		t.Fatalf("expected the database error to be returned; got %v", err)
	}
	if opens != 1 || len(sr.sleeps) != 0 {
		t.Fatalf("expected 1 attempt and no sleeps; got %d and %d", opens, len(sr.sleeps))
	}
}

func TestTableReplaceLoaderMalformedBatch(t *testing.T) {
	log := logger.NewLogger("visitload", "debug", true)
	sr := &sleepRecorder{}
	cfg := newMockLoaderConfig(log, func(ctx context.Context, log logger.Logger, d shared.ConnectionDetails) (shared.Connector, error) {
		t.Fatal("no connection should be opened for a malformed batch")
		return nil, nil
	}, sr)
	l, err := NewTableReplaceLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range []stream.Batch{nil, {}, {MapUrlToAttributionRecord("http://x"), stream.AttributionRecord{}}} {
		if _, err = l.Load(context.Background(), b); !errors.Is(err, stream.ErrMalformedBatch) {
			t.Fatalf("expected ErrMalformedBatch; got %v", err)
		}
	}
	if len(sr.sleeps) != 0 {
		t.Fatalf("expected no sleeps; got %v", sr.sleeps)
	}
}

func TestNewTableReplaceLoaderValidation(t *testing.T) {
	log := logger.NewLogger("visitload", "debug", true)
	if _, err := NewTableReplaceLoader(&TableReplaceLoaderConfig{Log: log}); err == nil {
		t.Fatal("expected error for missing connection func")
	}
	cfg := newMockLoaderConfig(log, rdbms.OpenDbConnection, &sleepRecorder{})
	cfg.OutputTable = ""
	if _, err := NewTableReplaceLoader(cfg); err == nil {
		t.Fatal("expected error for missing table")
	}
	cfg = newMockLoaderConfig(log, rdbms.OpenDbConnection, &sleepRecorder{})
	cfg.MaxAttempts = 0
	l, err := NewTableReplaceLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if l.cfg.MaxAttempts != constants.DefaultMaxLoadAttempts {
		t.Fatalf("expected default attempts; got %d", l.cfg.MaxAttempts)
	}
	if l.State() != LoadStateIdle {
		t.Fatalf("expected state Idle; got %v", l.State())
	}
}

// newSqliteVisitsTable creates customer_visits in a new database file and returns its connection details.
func newSqliteVisitsTable(t *testing.T, log logger.Logger, creativeConstraint string) shared.ConnectionDetails {
	t.Helper()
	cd := shared.ConnectionDetails{Type: constants.ConnectionTypeSqlite, Dsn: filepath.Join(t.TempDir(), "visits.db")}
	conn, err := rdbms.OpenDbConnection(context.Background(), log, cd)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	ddl := "create table customer_visits (ad_bucket text, ad_type text, ad_source text, schema_version text, " +
		"ad_campaign_id text, ad_keyword text, ad_group_id text, ad_creative text " + creativeConstraint + ")"
	if _, err = conn.ExecContext(context.Background(), ddl); err != nil {
		t.Fatal(err)
	}
	for idx := 0; idx < 7; idx++ {
		if _, err = conn.ExecContext(context.Background(), "insert into customer_visits (ad_bucket, ad_creative) values (?, 'c')", fmt.Sprintf("old%d", idx)); err != nil {
			t.Fatal(err)
		}
	}
	return cd
}

func countVisits(t *testing.T, log logger.Logger, cd shared.ConnectionDetails) int64 {
	t.Helper()
	conn, err := rdbms.OpenDbConnection(context.Background(), log, cd)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	n, err := rdbms.CountRows(context.Background(), log, conn, rdbms.NewSchemaTable("", "customer_visits"))
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestTableReplaceLoaderSqliteReplacesContents(t *testing.T) {
	log := logger.NewLogger("visitload", "debug", true)
	cd := newSqliteVisitsTable(t, log, "")
	sr := &sleepRecorder{}
	cfg := newMockLoaderConfig(log, rdbms.OpenDbConnection, sr)
	cfg.ConnectionDetails = cd
	l, err := NewTableReplaceLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	n, err := l.Load(context.Background(), makeBatch(3))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows; got %d", n)
	}
	if got := countVisits(t, log, cd); got != 3 {
		t.Fatalf("expected table to hold exactly the batch; got %d rows", got)
	}
	// Check the values landed in the right columns with NULL for absent fields.
	db, err := sql.Open(constants.DriverNameSqlite, cd.Dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var bucket, keyword string
	var source sql.NullString
	err = db.QueryRow("select ad_bucket, ad_keyword, ad_source from customer_visits where ad_bucket = 'b1'").Scan(&bucket, &keyword, &source)
	if err != nil {
		t.Fatal(err)
	}
	if keyword != "k1" || source.Valid {
		t.Fatalf("unexpected row values keyword=%q source=%v", keyword, source)
	}
}

func TestTableReplaceLoaderSqliteFailureLeavesTableUnchanged(t *testing.T) {
	log := logger.NewLogger("visitload", "debug", true)
	cd := newSqliteVisitsTable(t, log, "not null") // records built by makeBatch have no creative.
	sr := &sleepRecorder{}
	cfg := newMockLoaderConfig(log, rdbms.OpenDbConnection, sr)
	cfg.ConnectionDetails = cd
	l, err := NewTableReplaceLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = l.Load(context.Background(), makeBatch(3)); err == nil {
		t.Fatal("expected constraint violation")
	}
	if len(sr.sleeps) != 0 {
		t.Fatalf("expected a constraint violation to fail fast; got %d sleeps", len(sr.sleeps))
	}
	if got := countVisits(t, log, cd); got != 7 {
		t.Fatalf("expected the truncate to be rolled back leaving 7 rows; got %d", got)
	}
}

func TestTableReplaceLoaderSplitsInsertByBindLimit(t *testing.T) {
	log := logger.NewLogger("visitload", "debug", true)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	var statements []string
	conn := mocks.NewMockConnector(ctrl)
	tx := mocks.NewMockTransacter(ctrl)
	dml := shared.NewPostgresDmlGenerator()
	dml.MaxBindVars = 16 // two rows of 8 columns per INSERT.
	conn.EXPECT().GetDmlGenerator().Return(dml).AnyTimes()
	conn.EXPECT().GetType().Return(constants.ConnectionTypePostgres).AnyTimes()
	conn.EXPECT().BeginTx(gomock.Any()).Return(tx, nil)
	gomock.InOrder(
		tx.EXPECT().ExecContext(gomock.Any(), &sqlRecorder{prefix: "truncate", statements: &statements}).Return(nil, nil),
		tx.EXPECT().ExecContext(gomock.Any(), &sqlRecorder{prefix: "insert", statements: &statements}, gomock.Any()).Return(nil, nil).Times(3),
		tx.EXPECT().Commit().Return(nil),
	)
	conn.EXPECT().Close().Return(nil)
	cfg := newMockLoaderConfig(log, func(ctx context.Context, log logger.Logger, d shared.ConnectionDetails) (shared.Connector, error) {
		return conn, nil
	}, &sleepRecorder{})
	l, err := NewTableReplaceLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	n, err := l.Load(context.Background(), makeBatch(5))
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("expected 5 rows; got %d", n)
	}
	if len(statements) != 4 {
		t.Fatalf("expected a truncate and 3 inserts; got %v", statements)
	}
	for idx, expectedRows := range []int{2, 2, 1} {
		if got := strings.Count(statements[idx+1], "( $"); got != expectedRows {
			t.Fatalf("insert %d: expected %d rows; got %d in %q", idx, expectedRows, got, statements[idx+1])
		}
	}
	// Bind positions restart for each statement.
	if !strings.Contains(statements[3], "values ( $1,$2,") {
		t.Fatalf("expected the last insert to start at $1; got %q", statements[3])
	}
}

func TestTableReplaceLoaderSqliteLargeBatch(t *testing.T) {
	log := logger.NewLogger("visitload", "info", true)
	cd := newSqliteVisitsTable(t, log, "")
	cfg := newMockLoaderConfig(log, rdbms.OpenDbConnection, &sleepRecorder{})
	cfg.ConnectionDetails = cd
	l, err := NewTableReplaceLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	size := shared.MaxBindVarsSqlite/len(stream.AttributionFieldNames()) + 100 // more binds than one statement allows.
	n, err := l.Load(context.Background(), makeBatch(size))
	if err != nil {
		t.Fatal(err)
	}
	if n != size {
		t.Fatalf("expected %d rows; got %d", size, n)
	}
	if got := countVisits(t, log, cd); got != int64(size) {
		t.Fatalf("expected %d rows in table; got %d", size, got)
	}
}

func TestTableReplaceLoaderSqliteCustomColumnOrder(t *testing.T) {
	log := logger.NewLogger("visitload", "debug", true)
	cd := newSqliteVisitsTable(t, log, "")
	cfg := newMockLoaderConfig(log, rdbms.OpenDbConnection, &sleepRecorder{})
	cfg.ConnectionDetails = cd
	// Map fields to columns in an order that differs from the record.
	cfg.TargetKeyCols = h.StringSliceToOrderedMap([]string{stream.FieldAdKeyword})
	cfg.TargetOtherCols = h.StringSliceToOrderedMap([]string{stream.FieldAdType, stream.FieldAdBucket})
	l, err := NewTableReplaceLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = l.Load(context.Background(), makeBatch(2)); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open(constants.DriverNameSqlite, cd.Dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var bucket, adType, keyword string
	err = db.QueryRow("select ad_bucket, ad_type, ad_keyword from customer_visits where ad_bucket = 'b1'").Scan(&bucket, &adType, &keyword)
	if err != nil {
		t.Fatal(err)
	}
	if adType != "t" || keyword != "k1" {
		t.Fatalf("values landed in the wrong columns: bucket=%q type=%q keyword=%q", bucket, adType, keyword)
	}
}

func TestTableReplaceLoaderUnknownColumnField(t *testing.T) {
	log := logger.NewLogger("visitload", "debug", true)
	cfg := newMockLoaderConfig(log, func(ctx context.Context, log logger.Logger, d shared.ConnectionDetails) (shared.Connector, error) {
		t.Fatal("no connection should be opened when a column has no record field")
		return nil, nil
	}, &sleepRecorder{})
	cfg.TargetOtherCols = h.StringSliceToOrderedMap([]string{stream.FieldAdBucket, "utm_source"})
	l, err := NewTableReplaceLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = l.Load(context.Background(), makeBatch(1)); !errors.Is(err, stream.ErrMalformedBatch) {
		t.Fatalf("expected ErrMalformedBatch; got %v", err)
	}
}
