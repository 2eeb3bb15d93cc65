// Package notify fans monitor events out to the notification channels:
// in-app rows written directly, email and push handed to the delivery
// workers over RabbitMQ. Every channel is best-effort; failures are logged
// and never surface to the monitor run.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sparklecrew/sparkle-be/internal/monitor"
	"github.com/sparklecrew/sparkle-be/internal/monitor/domain"
)

// Notification kinds, shared with the delivery workers.
const (
	KindAutoCompleteReminder = "cleaning_auto_reminder"
	KindAutoCompletedCleaner = "cleaning_auto_completed"
	KindCompletionReview     = "cleaning_completion_review"
)

// InAppStore persists in-app notification rows.
type InAppStore interface {
	CreateInAppNotification(ctx context.Context, n domain.InAppNotification) error
}

// EventPublisher publishes delivery events for the email and push workers.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// EmailEvent is the payload handed to the email delivery worker.
type EmailEvent struct {
	Kind    string         `json:"kind"`
	To      string         `json:"to"`
	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Context map[string]any `json:"context,omitempty"`
}

// PushEvent is the payload handed to the push delivery worker.
type PushEvent struct {
	Kind        string         `json:"kind"`
	DeviceToken string         `json:"device_token"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Context     map[string]any `json:"context,omitempty"`
}

// Service implements monitor.Notifier.
type Service struct {
	store     InAppStore
	publisher EventPublisher
	logger    *slog.Logger
	inflight  sync.WaitGroup
}

func NewService(store InAppStore, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{store: store, publisher: publisher, logger: logger}
}

// ReminderDue notifies the assigned cleaner that a reminder ordinal has
// been crossed. The remaining time is measured from the run's evaluation
// instant, not the wall clock, so the wording matches the decision.
func (s *Service) ReminderDue(ctx context.Context, rec domain.CompletionRecord, ordinal int, now, deadline time.Time) {
	cleaner := rec.Assignee()
	title, body := ReminderMessage(ordinal, deadline.Sub(now))

	msgContext := map[string]any{
		"record_id":        rec.RecordID(),
		"location":         rec.Location(),
		"ordinal":          ordinal,
		"auto_complete_at": deadline,
	}

	tasks := []dispatchTask{
		s.inAppTask(cleaner.ID, KindAutoCompleteReminder, title, body, msgContext),
	}
	if cleaner.Email != "" {
		tasks = append(tasks, s.emailTask(cleaner.Email, KindAutoCompleteReminder, title, body, msgContext))
	}
	if cleaner.DeviceToken != "" {
		tasks = append(tasks, s.pushTask(cleaner.DeviceToken, KindAutoCompleteReminder, title, body, msgContext))
	}

	s.dispatch(ctx, rec.RecordID(), tasks)
}

// AutoCompleted notifies both parties that the system submitted the
// cleaning: the cleaner that it was done on their behalf, the customer
// that a completion is pending their review.
func (s *Service) AutoCompleted(ctx context.Context, rec domain.CompletionRecord, c monitor.Completion) {
	approvalHours := int(c.AutoApprovalExpiresAt.Sub(c.SubmittedAt).Hours())

	msgContext := map[string]any{
		"record_id":                rec.RecordID(),
		"location":                 rec.Location(),
		"auto_approval_expires_at": c.AutoApprovalExpiresAt,
	}

	cleaner := rec.Assignee()
	cleanerTitle, cleanerBody := AutoCompletedCleanerMessage(approvalHours)
	tasks := []dispatchTask{
		s.inAppTask(cleaner.ID, KindAutoCompletedCleaner, cleanerTitle, cleanerBody, msgContext),
	}
	if cleaner.Email != "" {
		tasks = append(tasks, s.emailTask(cleaner.Email, KindAutoCompletedCleaner, cleanerTitle, cleanerBody, msgContext))
	}
	if cleaner.DeviceToken != "" {
		tasks = append(tasks, s.pushTask(cleaner.DeviceToken, KindAutoCompletedCleaner, cleanerTitle, cleanerBody, msgContext))
	}

	customer := rec.Requester()
	customerTitle, customerBody := AutoCompletedCustomerMessage(approvalHours)
	tasks = append(tasks, s.inAppTask(customer.ID, KindCompletionReview, customerTitle, customerBody, msgContext))
	if customer.Email != "" {
		tasks = append(tasks, s.emailTask(customer.Email, KindCompletionReview, customerTitle, customerBody, msgContext))
	}

	s.dispatch(ctx, rec.RecordID(), tasks)
}

type dispatchTask struct {
	channel string
	run     func(ctx context.Context) error
}

// dispatch runs every task asynchronously and drains a result channel,
// logging failures. Delivery is fire-and-forget: the caller has already
// committed its state change and must not be held up or rolled back by a
// slow or failing channel.
func (s *Service) dispatch(ctx context.Context, recordID string, tasks []dispatchTask) {
	ctx = context.WithoutCancel(ctx)
	results := make(chan dispatchResult, len(tasks))

	for _, task := range tasks {
		go func(task dispatchTask) {
			results <- dispatchResult{channel: task.channel, err: task.run(ctx)}
		}(task)
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		for i := 0; i < len(tasks); i++ {
			res := <-results
			if res.err != nil {
				s.logger.Error("Notification dispatch failed",
					slog.String("record_id", recordID),
					slog.String("channel", res.channel),
					slog.Any("error", res.err),
				)
			}
		}
	}()
}

type dispatchResult struct {
	channel string
	err     error
}

// Wait blocks until every in-flight dispatch has been accounted for. Used
// on shutdown so pending notification events still reach the broker.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) inAppTask(userID, kind, title, body string, msgContext map[string]any) dispatchTask {
	return dispatchTask{channel: "in_app", run: func(ctx context.Context) error {
		contextJSON, err := json.Marshal(msgContext)
		if err != nil {
			return err
		}
		return s.store.CreateInAppNotification(ctx, domain.InAppNotification{
			ID:        uuid.New().String(),
			UserID:    userID,
			Kind:      kind,
			Title:     title,
			Body:      body,
			Context:   string(contextJSON),
			CreatedAt: time.Now(),
		})
	}}
}

func (s *Service) emailTask(to, kind, subject, body string, msgContext map[string]any) dispatchTask {
	return dispatchTask{channel: "email", run: func(ctx context.Context) error {
		payload, err := json.Marshal(EmailEvent{
			Kind:    kind,
			To:      to,
			Subject: subject,
			Body:    body,
			Context: msgContext,
		})
		if err != nil {
			return err
		}
		return s.publisher.Publish(ctx, "notify.email."+kind, payload, "application/json")
	}}
}

func (s *Service) pushTask(deviceToken, kind, title, body string, msgContext map[string]any) dispatchTask {
	return dispatchTask{channel: "push", run: func(ctx context.Context) error {
		payload, err := json.Marshal(PushEvent{
			Kind:        kind,
			DeviceToken: deviceToken,
			Title:       title,
			Body:        body,
			Context:     msgContext,
		})
		if err != nil {
			return err
		}
		return s.publisher.Publish(ctx, "notify.push."+kind, payload, "application/json")
	}}
}
