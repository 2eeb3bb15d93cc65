package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparklecrew/sparkle-be/internal/monitor"
	"github.com/sparklecrew/sparkle-be/internal/monitor/domain"
)

type fakeInAppStore struct {
	mu   sync.Mutex
	rows []domain.InAppNotification
	err  error
}

func (f *fakeInAppStore) CreateInAppNotification(ctx context.Context, n domain.InAppNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, n)
	return nil
}

type publishedEvent struct {
	routingKey  string
	body        []byte
	contentType string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, body []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{routingKey: routingKey, body: body, contentType: contentType})
	return nil
}

func (f *fakePublisher) routingKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.events))
	for _, e := range f.events {
		keys = append(keys, e.routingKey)
	}
	sort.Strings(keys)
	return keys
}

func notifyTestBooking() domain.Booking {
	return domain.Booking{
		ID:                 "booking-1",
		CleanerID:          "cleaner-1",
		CleanerName:        "Alex Nguyen",
		CleanerEmail:       "alex@example.com",
		CleanerDeviceToken: "device-token-1",
		CustomerID:         "customer-1",
		CustomerName:       "Pat Lee",
		CustomerEmail:      "pat@example.com",
		AddressLabel:       "12 Elm St",
	}
}

func TestReminderDueFansOutAllChannels(t *testing.T) {
	store := &fakeInAppStore{}
	publisher := &fakePublisher{}
	svc := NewService(store, publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))

	now := time.Date(2024, time.August, 15, 19, 0, 0, 0, time.Local)
	deadline := now.Add(3*time.Hour + 30*time.Minute)
	svc.ReminderDue(context.Background(), notifyTestBooking(), 2, now, deadline)
	svc.Wait()

	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, "cleaner-1", row.UserID)
	assert.Equal(t, KindAutoCompleteReminder, row.Kind)
	assert.NotEmpty(t, row.ID)

	var rowContext map[string]any
	require.NoError(t, json.Unmarshal([]byte(row.Context), &rowContext))
	assert.Equal(t, "booking-1", rowContext["record_id"])
	assert.Equal(t, "12 Elm St", rowContext["location"])

	assert.Equal(t, []string{
		"notify.email." + KindAutoCompleteReminder,
		"notify.push." + KindAutoCompleteReminder,
	}, publisher.routingKeys())

	for _, e := range publisher.events {
		assert.Equal(t, "application/json", e.contentType)
	}

	// Remaining time is measured from the supplied instant, so the body
	// is deterministic.
	assert.Contains(t, row.Body, "in 3h 30m")
}

func TestReminderDueSkipsMissingChannels(t *testing.T) {
	store := &fakeInAppStore{}
	publisher := &fakePublisher{}
	svc := NewService(store, publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := notifyTestBooking()
	rec.CleanerEmail = ""
	rec.CleanerDeviceToken = ""

	now := time.Now()
	svc.ReminderDue(context.Background(), rec, 1, now, now.Add(time.Hour))
	svc.Wait()

	// In-app is unconditional; email and push need an address to go to.
	require.Len(t, store.rows, 1)
	assert.Empty(t, publisher.events)
}

func TestAutoCompletedNotifiesBothParties(t *testing.T) {
	store := &fakeInAppStore{}
	publisher := &fakePublisher{}
	svc := NewService(store, publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))

	now := time.Now()
	svc.AutoCompleted(context.Background(), notifyTestBooking(), monitor.Completion{
		SubmittedAt:           now,
		AutoApprovalExpiresAt: now.Add(24 * time.Hour),
	})
	svc.Wait()

	require.Len(t, store.rows, 2)
	kindsByUser := map[string]string{}
	for _, row := range store.rows {
		kindsByUser[row.UserID] = row.Kind
	}
	assert.Equal(t, KindAutoCompletedCleaner, kindsByUser["cleaner-1"])
	assert.Equal(t, KindCompletionReview, kindsByUser["customer-1"])

	// Cleaner gets email and push, customer gets email only.
	assert.Equal(t, []string{
		"notify.email." + KindAutoCompletedCleaner,
		"notify.email." + KindCompletionReview,
		"notify.push." + KindAutoCompletedCleaner,
	}, publisher.routingKeys())

	for _, e := range publisher.events {
		if e.routingKey == "notify.email."+KindCompletionReview {
			var event EmailEvent
			require.NoError(t, json.Unmarshal(e.body, &event))
			assert.Equal(t, "pat@example.com", event.To)
			assert.Contains(t, event.Body, "24 hours")
		}
	}
}

func TestDispatchFailuresAreIsolated(t *testing.T) {
	store := &fakeInAppStore{err: errors.New("notifications table gone")}
	publisher := &fakePublisher{}
	svc := NewService(store, publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))

	now := time.Now()
	svc.ReminderDue(context.Background(), notifyTestBooking(), 3, now, now.Add(time.Hour))
	svc.Wait()

	// The in-app write failed, the broker events still went out.
	assert.Empty(t, store.rows)
	assert.Len(t, publisher.events, 2)
}

func TestDispatchSurvivesCancelledContext(t *testing.T) {
	store := &fakeInAppStore{}
	publisher := &fakePublisher{}
	svc := NewService(store, publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	now := time.Now()
	svc.ReminderDue(ctx, notifyTestBooking(), 1, now, now.Add(time.Hour))
	svc.Wait()

	// The caller's context is detached before dispatch, so a cancelled run
	// still delivers.
	assert.Len(t, store.rows, 1)
	assert.Len(t, publisher.events, 2)
}
