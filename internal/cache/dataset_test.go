package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IBSentinel/internal/loader"
	"IBSentinel/internal/model"
)

var sample = []model.RawRow{
	{Timestamp: "20240102 143000", Open: 100.0, High: 101.0, Low: 99.0, Close: 100.5},
	{Line: "20240102 143100;100.5;102;100;101"},
}

type failingSource struct {
	loader.MockSource
	fpErr, loadErr error
}

func (f *failingSource) Fingerprint(ctx context.Context) (string, error) {
	if f.fpErr != nil {
		return "", f.fpErr
	}
	return f.MockSource.Fingerprint(ctx)
}

func (f *failingSource) Load(ctx context.Context) ([]model.RawRow, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.MockSource.Load(ctx)
}

func TestNew_Defaults(t *testing.T) {
	c := New(&loader.MockSource{}, nil, 0, nil)
	assert.Equal(t, DefaultTTL, c.ttl)
	assert.NotNil(t, c.logger)
	assert.Equal(t, "mock", c.Name())
}

func TestCachingSource_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	src := &loader.MockSource{Rows: sample, Version: "v1"}
	c := New(src, nil, time.Minute, nil)

	for i := 0; i < 3; i++ {
		rows, err := c.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, sample, rows)
	}
	assert.Equal(t, 1, c.Loads())

	src.Version = "v2"
	_, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Loads())

	// Unknown fingerprint always reloads.
	src.Version = ""
	_, err = c.Load(ctx)
	require.NoError(t, err)
	_, err = c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Loads())
}

func TestCachingSource_Redis(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	payload, err := json.Marshal(sample)
	require.NoError(t, err)

	mock.ExpectGet("ibsentinel:dataset:mock:v1").RedisNil()
	mock.ExpectSet("ibsentinel:dataset:mock:v1", payload, time.Hour).SetVal("OK")
	mock.ExpectGet("ibsentinel:dataset:mock:v2").SetVal(string(payload))
	mock.ExpectDel("ibsentinel:dataset:mock:v1").SetVal(1)

	src := &loader.MockSource{Rows: sample, Version: "v1"}
	c := New(src, rdb, time.Hour, nil)

	rows, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample, rows)

	// Served from memory without touching redis.
	_, err = c.Load(ctx)
	require.NoError(t, err)

	// Another process already stored v2.
	src.Version = "v2"
	rows, err = c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample, rows)

	assert.Equal(t, 1, c.Loads())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingSource_CorruptRedisEntry(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	payload, err := json.Marshal(sample)
	require.NoError(t, err)

	mock.ExpectGet("ibsentinel:dataset:mock:v1").SetVal("not json")
	mock.ExpectDel("ibsentinel:dataset:mock:v1").SetVal(1)
	mock.ExpectSet("ibsentinel:dataset:mock:v1", payload, time.Hour).SetVal("OK")

	c := New(&loader.MockSource{Rows: sample, Version: "v1"}, rdb, time.Hour, nil)
	rows, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample, rows)
	assert.Equal(t, 1, c.Loads())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingSource_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	tests := []struct {
		name string
		src  *failingSource
	}{
		{name: "fingerprint", src: &failingSource{fpErr: boom}},
		{name: "load", src: &failingSource{MockSource: loader.MockSource{Version: "v1"}, loadErr: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.src, nil, 0, nil)
			_, err := c.Load(ctx)
			assert.ErrorIs(t, err, boom)
			assert.Zero(t, c.Loads())
		})
	}
}

func TestCachingSource_HTTPWithoutHead(t *testing.T) {
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		gets.Add(1)
		_, _ = w.Write([]byte(`[{"timestamp":1704205800,"open":100,"high":101,"low":99,"close":100.5}]`))
	}))
	defer srv.Close()

	c := New(loader.NewHTTPSource(srv.URL, "", ""), nil, time.Minute, nil)
	for i := 0; i < 2; i++ {
		rows, err := c.Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	}
	assert.Equal(t, int32(2), gets.Load(), "unknown fingerprint reloads every time")
}
