package presenter_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kiranshivaraju/quotehunter/internal/cache"
	"github.com/kiranshivaraju/quotehunter/internal/presenter"
	"github.com/kiranshivaraju/quotehunter/internal/quote"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(id uuid.UUID, seq int) models.StatusSnapshot {
	return models.StatusSnapshot{RequestID: id, Seq: seq, Phase: models.PhaseRunning}
}

// --- Webhook ---

func TestWebhook_PostsEnvelopeWithBearerToken(t *testing.T) {
	var got presenter.Envelope
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	id := uuid.New()
	wh := presenter.NewWebhook(srv.URL, "transport-secret", time.Second)
	err := wh.DeliverQuote(context.Background(), models.QuoteCard{RequestID: id, Title: quote.QuoteTitle})

	require.NoError(t, err)
	assert.Equal(t, "Bearer transport-secret", auth)
	assert.Equal(t, presenter.KindQuote, got.Kind)
	assert.Equal(t, id, got.RequestID)
}

func TestWebhook_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := presenter.NewWebhook(srv.URL, "t", time.Second).PublishStatus(context.Background(), snapshot(uuid.New(), 1))

	assert.ErrorIs(t, err, presenter.ErrDeliveryFailed)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhook_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := presenter.NewWebhook(srv.URL, "t", time.Second).DeliverError(context.Background(),
		models.ErrorCard{RequestID: uuid.New(), Title: quote.ProcessingErrorTitle})

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhook_Unreachable(t *testing.T) {
	err := presenter.NewWebhook("http://127.0.0.1:1", "t", 200*time.Millisecond).
		PublishStatus(context.Background(), snapshot(uuid.New(), 1))
	assert.ErrorIs(t, err, presenter.ErrDeliveryFailed)
}

// --- Multi ---

type failingSink struct{ quote.Discard }

func (failingSink) PublishStatus(context.Context, models.StatusSnapshot) error {
	return errors.New("sink down")
}

func TestMulti_ReachesEverySinkAndJoinsErrors(t *testing.T) {
	c := cache.NewMemoryCache()
	rec := presenter.NewRecorder(c, time.Minute)
	id := uuid.New()

	err := presenter.Multi{failingSink{}, rec}.PublishStatus(context.Background(), snapshot(id, 1))

	assert.ErrorContains(t, err, "sink down")
	_, found, _ := c.GetSnapshot(context.Background(), id)
	assert.True(t, found, "later sinks still receive the event")

	assert.NoError(t, presenter.Multi{failingSink{}, rec}.DeliverQuote(context.Background(), models.QuoteCard{RequestID: id}))
}

// --- Recorder ---

func TestRecorder_LookupReturnsLatestSnapshotAndCard(t *testing.T) {
	rec := presenter.NewRecorder(cache.NewMemoryCache(), time.Minute)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, rec.PublishStatus(ctx, snapshot(id, 2)))
	require.NoError(t, rec.PublishStatus(ctx, snapshot(id, 1)))
	require.NoError(t, rec.DeliverQuote(ctx, models.QuoteCard{RequestID: id, ProductName: "Desk Lamp"}))

	view, found, err := rec.Lookup(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, view.Snapshot.Seq)

	var env struct {
		Kind string           `json:"kind"`
		Data models.QuoteCard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(view.Card, &env))
	assert.Equal(t, presenter.KindQuote, env.Kind)
	assert.Equal(t, "Desk Lamp", env.Data.ProductName)
}

func TestRecorder_LookupUnknown(t *testing.T) {
	rec := presenter.NewRecorder(cache.NewMemoryCache(), time.Minute)
	_, found, err := rec.Lookup(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, found)
}

// --- Hub ---

func dialHub(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) presenter.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env presenter.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestHub_BroadcastsToClients(t *testing.T) {
	hub := presenter.NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dialHub(t, srv, "")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	id := uuid.New()
	require.NoError(t, hub.PublishStatus(context.Background(), snapshot(id, 1)))

	env := readEnvelope(t, conn)
	assert.Equal(t, presenter.KindStatus, env.Kind)
	assert.Equal(t, id, env.RequestID)
}

func TestHub_FiltersByRequestID(t *testing.T) {
	hub := presenter.NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	wanted := uuid.New()
	conn := dialHub(t, srv, "?request_id="+wanted.String())
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.PublishStatus(context.Background(), snapshot(uuid.New(), 1)))
	require.NoError(t, hub.DeliverError(context.Background(), models.ErrorCard{RequestID: wanted, Title: quote.FrameFailureTitle}))

	env := readEnvelope(t, conn)
	assert.Equal(t, presenter.KindError, env.Kind)
	assert.Equal(t, wanted, env.RequestID)
}

func TestHub_RejectsBadFilter(t *testing.T) {
	hub := presenter.NewHub()
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?request_id=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHub_ClientDisconnectRemoves(t *testing.T) {
	hub := presenter.NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv, "")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
