package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/safety_dispatch/internal/config"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestWebhookWorker_Deliver(t *testing.T) {
	t.Run("retries until success and signs payload", func(t *testing.T) {
		var calls int32
		payload := `{"type":"unassigned_escalation"}`
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&calls, 1)
			assert.Equal(t, generateHMACSHA256(payload, "secret"), r.Header.Get("X-Webhook-Signature"))
			if n < 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		cfg := &config.Config{
			WebhookURL:        server.URL,
			WebhookSecret:     "secret",
			WebhookTimeout:    time.Second,
			WebhookMaxRetries: 3,
			WebhookBaseDelay:  time.Millisecond,
		}
		worker := NewWebhookWorker(nil, newTestLogger(), cfg)

		require.NoError(t, worker.Deliver(context.Background(), payload))
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		cfg := &config.Config{
			WebhookURL:        server.URL,
			WebhookTimeout:    time.Second,
			WebhookMaxRetries: 2,
			WebhookBaseDelay:  time.Millisecond,
		}
		worker := NewWebhookWorker(nil, newTestLogger(), cfg)

		err := worker.Deliver(context.Background(), "{}")
		assert.Error(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})
}

func TestHTTPTransport_Send(t *testing.T) {
	recordID := uuid.New()

	t.Run("delivered", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req notifyRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "vol-1", req.ResponderID)
			assert.Equal(t, recordID, req.Notification.RecordID)
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		tr := NewHTTPTransport(server.URL, "", time.Second)
		err := tr.Send(context.Background(), "vol-1", models.Notification{Kind: models.KindReport, RecordID: recordID})
		assert.NoError(t, err)
	})

	t.Run("gateway rejects", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		tr := NewHTTPTransport(server.URL, "", time.Second)
		err := tr.Send(context.Background(), "vol-1", models.Notification{RecordID: recordID})
		assert.ErrorIs(t, err, e.ErrDeliveryFailed)
	})
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestWebhookWorker_StartDeliversAndStops(t *testing.T) {
	_, client := newTestRedis(t)
	recordID := uuid.New()

	delivered := make(chan WebhookEvent, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event WebhookEvent
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		delivered <- event
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		WebhookURL:        server.URL,
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 1,
		WebhookBaseDelay:  time.Millisecond,
	}
	worker := NewWebhookWorker(client, newTestLogger(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	require.NoError(t, NewRedisWebhookPublisher(client).Publish(ctx, WebhookEvent{Type: EventEscalation, RecordID: recordID}))

	select {
	case event := <-delivered:
		assert.Equal(t, recordID, event.RecordID)
		assert.Equal(t, EventEscalation, event.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("webhook event was not delivered")
	}

	cancel()
	stopped := make(chan struct{})
	go func() {
		worker.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("webhook worker did not stop after cancel")
	}
}

func TestWebhookWorker_InterruptedDeliveryIsRequeued(t *testing.T) {
	mr, client := newTestRedis(t)

	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Сервер замечает обрыв соединения только после прочтения тела
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer func() {
		server.CloseClientConnections()
		server.Close()
	}()

	cfg := &config.Config{
		WebhookURL:        server.URL,
		WebhookTimeout:    5 * time.Second,
		WebhookMaxRetries: 3,
		WebhookBaseDelay:  time.Second,
	}
	worker := NewWebhookWorker(client, newTestLogger(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	require.NoError(t, NewRedisWebhookPublisher(client).Publish(ctx, WebhookEvent{Type: EventEscalation, RecordID: uuid.New()}))

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("webhook delivery did not start")
	}
	cancel()
	worker.Wait()

	pending, err := mr.List(webhookQueueKey)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Contains(t, pending[0], string(EventEscalation))
}

func TestDirectPublisher_WaitCoversBackgroundDelivery(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		WebhookURL:        server.URL,
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 1,
	}
	worker := NewWebhookWorker(nil, newTestLogger(), cfg)

	require.NoError(t, NewDirectPublisher(worker).Publish(context.Background(), WebhookEvent{Type: EventPanicBroadcast}))
	worker.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
