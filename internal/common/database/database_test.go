package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-eligibility-workers/internal/common/config"
)

// ====== Postgres ======

func TestPostgresClient_PingAndClose(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(fmt.Errorf("connection refused"))
	mock.ExpectClose()

	pg := WrapPostgres(db, false)
	require.NoError(t, pg.Ping(context.Background()))

	err = pg.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ping")

	require.NoError(t, pg.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClient_MigrateDisabled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	applied, err := WrapPostgres(db, false).Migrate()
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgres_DoesNotDial(t *testing.T) {
	pg, err := NewPostgres(config.PostgresConfig{
		Host:            "127.0.0.1",
		Port:            1,
		Database:        "loans",
		User:            "loans",
		SSLMode:         "disable",
		MaxConnections:  4,
		MaxIdle:         2,
		ConnMaxLifetime: 60,
	})
	require.NoError(t, err)
	defer pg.Close()

	assert.Equal(t, 4, pg.GetDB().Stats().MaxOpenConnections)
}

func TestWithTransaction_Commit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE loan_profiles").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = WithTransaction(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE loan_profiles SET cibil_score = 1")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE loan_profiles").WillReturnError(fmt.Errorf("constraint violation"))
	mock.ExpectRollback()

	err = WithTransaction(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE loan_profiles SET cibil_score = 1")
		return err
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_BeginFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(fmt.Errorf("too many connections"))

	called := false
	err = WithTransaction(context.Background(), db, func(tx *sql.Tx) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, err.Error(), "begin tx")
}

func TestMigrationVersions(t *testing.T) {
	versions, err := MigrationVersions()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3, 4}, versions)
}

// ====== Redis ======

type cachedReport struct {
	Status string  `json:"status"`
	Score  float64 `json:"score"`
}

func TestRedisClient_JSONRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.SetJSON(ctx, "verification:u-1", cachedReport{Status: "Verified", Score: 100}, time.Minute))

	var got cachedReport
	require.NoError(t, client.GetJSON(ctx, "verification:u-1", &got))
	assert.Equal(t, "Verified", got.Status)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, client.GetJSON(ctx, "verification:u-1", &got), ErrCacheMiss)
}

func TestRedisClient_GetError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("verification:u-2").SetErr(fmt.Errorf("connection refused"))

	client := NewRedisFromClient(rdb)
	var got cachedReport
	err := client.GetJSON(context.Background(), "verification:u-2", &got)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ====== Elasticsearch ======

func newESServer(t *testing.T, status int, body string, seen *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if seen != nil && r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, seen)
			(*seen)["_path"] = r.URL.Path
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestElasticsearchClient_IndexDocument(t *testing.T) {
	seen := map[string]interface{}{}
	srv := newESServer(t, http.StatusOK, `{"_version":3,"result":"updated"}`, &seen)
	defer srv.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)

	version, err := client.IndexDocument(context.Background(), "verification-reports", "u-1", map[string]interface{}{
		"overall_status": "Verified",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
	assert.Equal(t, "Verified", seen["overall_status"])
	assert.Equal(t, "/verification-reports/_doc/u-1", seen["_path"])
}

func TestElasticsearchClient_IndexDocumentError(t *testing.T) {
	srv := newESServer(t, http.StatusBadRequest, `{"error":"mapper_parsing_exception"}`, nil)
	defer srv.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	_, err = client.IndexDocument(context.Background(), "verification-reports", "u-1", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}
