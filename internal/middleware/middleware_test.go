package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/signature-echo/internal/config"
	"github.com/iliyamo/signature-echo/internal/queue"
	"github.com/iliyamo/signature-echo/internal/replay"
	"github.com/iliyamo/signature-echo/internal/signature"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucket(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 10 * time.Hour, KeyStrategy: "ip_route", Prefix: "rl",
	}

	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") }, NewTokenBucket(cfg, rdb))

	for i := 0; i < 2; i++ {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too_many_requests")

	other := httptest.NewRequest(http.MethodGet, "/ping", nil)
	other.RemoteAddr = "198.51.100.7:4000"
	assert.Equal(t, http.StatusOK, serve(e, other).Code, "buckets are per client ip")
}

func TestTokenBucketDisabledOrNoRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1}
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") }, NewTokenBucket(cfg, nil))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour, Prefix: "rl"}
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") }, NewTokenBucket(cfg, rdb))
	mr.Close()
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)
}

func TestRedisCache(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 20,
	}

	calls := 0
	e := echo.New()
	e.GET("/quotes", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, []string{"a", "b"})
	}, NewRedisCache(cfg, rdb))

	first := serve(e, httptest.NewRequest(http.MethodGet, "/quotes", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := serve(e, httptest.NewRequest(http.MethodGet, "/quotes", nil))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)

	third := serve(e, httptest.NewRequest(http.MethodGet, "/quotes?page=2", nil))
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"), "query is part of the key")
	assert.Equal(t, 2, calls)
}

func TestRedisCacheSkipsErrors(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}

	calls := 0
	e := echo.New()
	e.GET("/quotes", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Database failed"})
	}, NewRedisCache(cfg, rdb))

	serve(e, httptest.NewRequest(http.MethodGet, "/quotes", nil))
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/quotes", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestPayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[1]`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, gotHdr)
	assert.Equal(t, `[1]`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok, "header length beyond payload")
}

type recordingPublisher struct{ events chan queue.RejectionEvent }

func (p recordingPublisher) Publish(_ context.Context, ev queue.RejectionEvent) error {
	p.events <- ev
	return nil
}

func (p recordingPublisher) next(t *testing.T) queue.RejectionEvent {
	t.Helper()
	select {
	case ev := <-p.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event published")
		return queue.RejectionEvent{}
	}
}

type guardFixture struct {
	e      *echo.Echo
	pub    recordingPublisher
	secret []byte
	loc    *time.Location
	at     time.Time
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	loc := time.FixedZone("SGT", 8*60*60)
	at := time.Date(2024, 2, 1, 10, 10, 10, 0, loc)
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })

	f := &guardFixture{
		e:      echo.New(),
		pub:    recordingPublisher{events: make(chan queue.RejectionEvent, 8)},
		secret: []byte("mambo-mambo-omatsuri-mambo"),
		loc:    loc,
		at:     at,
	}
	cfg := config.GuardConfig{Location: loc, Tolerance: 10 * time.Second, RefTTL: time.Minute}
	v := signature.JWSVerifier{Secret: f.secret, Compact: true}
	f.e.POST("/quote", func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, "passed:"+string(body))
	}, SignedRequest(cfg, v, replay.NewMemoryStore(), f.pub))
	return f
}

func (f *guardFixture) request(t *testing.T, body, ts, ref string, sign bool) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if ts != "" {
		req.Header.Set(TimestampHeader, ts)
	}
	if ref != "" {
		req.Header.Set(RefHeader, ref)
	}
	if sign {
		compact, err := signature.CompactJSON([]byte(body))
		require.NoError(t, err)
		token, err := signature.SignJWS(f.secret, signature.JWSHeader{Type: "JWT", URI: "/quote", IAT: ts}, compact)
		require.NoError(t, err)
		req.Header.Set(SignatureHeader, token)
	}
	return req
}

func TestSignedRequest(t *testing.T) {
	f := newGuardFixture(t)
	ts := f.at.Format(config.TimestampLayout)
	body := "{\n  \"id\": \"1\"\n}"

	rec := serve(f.e, f.request(t, body, ts, "PT1001", true))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "passed:"+body, rec.Body.String(), "handler sees the original body")

	rec = serve(f.e, f.request(t, body, ts, "PT1001", true))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ref not unique")
	assert.Equal(t, queue.KindRefReplayed, f.pub.next(t).Kind)
}

func TestSignedRequestRejections(t *testing.T) {
	f := newGuardFixture(t)
	ts := f.at.Format(config.TimestampLayout)
	stale := f.at.Add(-11 * time.Second).Format(config.TimestampLayout)
	future := f.at.Add(10 * time.Second).Format(config.TimestampLayout)

	t.Run("missing headers", func(t *testing.T) {
		rec := serve(f.e, f.request(t, `{"id":"1"}`, "", "PT1", true))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Missing headers")
		assert.Equal(t, queue.KindHeadersMissing, f.pub.next(t).Kind)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		rec := serve(f.e, f.request(t, `{"id":"1"}`, stale, "PT2", true))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid timestamp")
		assert.Equal(t, queue.KindTimestampRejected, f.pub.next(t).Kind)
	})

	t.Run("timestamp at the tolerance edge", func(t *testing.T) {
		rec := serve(f.e, f.request(t, `{"id":"1"}`, future, "PT3", true))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("garbage timestamp", func(t *testing.T) {
		rec := serve(f.e, f.request(t, `{"id":"1"}`, "yesterday", "PT4", true))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.pub.next(t)
	})

	t.Run("bad signature does not burn ref", func(t *testing.T) {
		req := f.request(t, `{"id":"1"}`, ts, "PT5", true)
		req.Header.Set(SignatureHeader, "a.b.c")
		rec := serve(f.e, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid signature")
		ev := f.pub.next(t)
		assert.Equal(t, queue.KindSignatureRejected, ev.Kind)
		assert.Equal(t, "PT5", ev.Ref)

		rec = serve(f.e, f.request(t, `{"id":"1"}`, ts, "PT5", true))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("body not json", func(t *testing.T) {
		req := f.request(t, `{"id":"1"}`, ts, "PT6", true)
		req.Body = io.NopCloser(strings.NewReader("id=1"))
		rec := serve(f.e, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid JSON body")
		assert.Equal(t, queue.KindBodyRejected, f.pub.next(t).Kind)
	})

	t.Run("body not json with bad token", func(t *testing.T) {
		req := f.request(t, `{"id":"1"}`, ts, "PT7", false)
		req.Header.Set(SignatureHeader, "a.b.c")
		req.Body = io.NopCloser(strings.NewReader("id=1"))
		rec := serve(f.e, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid JSON body")
		f.pub.next(t)
	})

	t.Run("old token under a fresh timestamp", func(t *testing.T) {
		old := f.at.Add(-time.Hour).Format(config.TimestampLayout)
		captured := f.request(t, `{"id":"1"}`, old, "PT8", true)

		req := f.request(t, `{"id":"1"}`, ts, "PT999", false)
		req.Header.Set(SignatureHeader, captured.Header.Get(SignatureHeader))
		rec := serve(f.e, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid signature")
		ev := f.pub.next(t)
		assert.Equal(t, queue.KindSignatureRejected, ev.Kind)
		assert.Contains(t, ev.Reason, "iat")

		rec = serve(f.e, f.request(t, `{"id":"1"}`, ts, "PT999", true))
		assert.Equal(t, http.StatusOK, rec.Code, "ref not burned by the replay")
	})

	t.Run("token signed for another path", func(t *testing.T) {
		token, err := signature.SignJWS(f.secret, signature.JWSHeader{Type: "JWT", URI: "/quotes", IAT: ts}, []byte(`{"id":"1"}`))
		require.NoError(t, err)
		req := f.request(t, `{"id":"1"}`, ts, "PT10", false)
		req.Header.Set(SignatureHeader, token)
		rec := serve(f.e, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, f.pub.next(t).Reason, "uri")
	})
}

func TestValidTimestamp(t *testing.T) {
	loc := time.FixedZone("SGT", 8*60*60)
	cfg := config.GuardConfig{Location: loc, Tolerance: 10 * time.Second}
	at := time.Date(2024, 2, 1, 10, 10, 10, 0, loc)

	assert.True(t, validTimestamp("01022024101010", cfg, at))
	assert.True(t, validTimestamp("01022024101000", cfg, at))
	assert.False(t, validTimestamp("01022024100959", cfg, at))
	assert.False(t, validTimestamp("01022024101021", cfg, at))
	// Same wall clock read in UTC is eight hours off.
	assert.False(t, validTimestamp("01022024101010", config.GuardConfig{Location: time.UTC, Tolerance: 10 * time.Second}, at))
}
