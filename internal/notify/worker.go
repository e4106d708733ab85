// Package notify implements the email notification workers. A worker waits
// for bucket events, fetches the referenced mailbox object, renders an email
// from it and sends it over SMTP.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eshop/internal/models"
	"eshop/pkg/events"
	"eshop/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ObjectStore is the mailbox as seen by a worker.
type ObjectStore interface {
	Ready(ctx context.Context) error
	EnsureBucket(ctx context.Context, bucket string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// Source delivers bucket event messages. Consume blocks until ctx ends or the
// subscription breaks.
type Source interface {
	Consume(ctx context.Context, bucket string, handle func(ctx context.Context, body []byte) error) error
	Close() error
}

// Connector opens a Source; it is called again after every failure.
type Connector func(ctx context.Context) (Source, error)

// Job describes one kind of notification worker.
type Job struct {
	Name        string
	Kind        string
	Bucket      string
	DefaultPort string
	Banner      string
	Render      func(payload []byte) (Email, error)
}

var (
	WelcomeJob = Job{
		Name:        "welcome",
		Kind:        models.EventWelcome,
		Bucket:      models.BucketUserRegistrations,
		DefaultPort: ":8080",
		Banner:      "Welcome Email Service is running",
		Render:      RenderWelcome,
	}
	OrdersJob = Job{
		Name:        "orders",
		Kind:        models.EventOrderConfirmation,
		Bucket:      models.BucketOrderConfirmations,
		DefaultPort: ":8081",
		Banner:      "Order Confirmation Email Service is running",
		Render:      RenderOrderConfirmation,
	}
)

// JobByName returns the job called name ("welcome" or "orders").
func JobByName(name string) (Job, error) {
	for _, j := range []Job{WelcomeJob, OrdersJob} {
		if j.Name == name {
			return j, nil
		}
	}
	return Job{}, fmt.Errorf("unknown notification worker %q", name)
}

// DefaultRetryDelay is the pause between setup attempts.
const DefaultRetryDelay = 5 * time.Second

// Worker runs one Job.
type Worker struct {
	job        Job
	store      ObjectStore
	connect    Connector
	sender     Sender
	logger     *zap.Logger
	metrics    *metrics.Metrics
	retryDelay time.Duration
}

// NewWorker wires a worker for job.
func NewWorker(job Job, store ObjectStore, connect Connector, sender Sender, logger *zap.Logger, m *metrics.Metrics) *Worker {
	return &Worker{
		job:        job,
		store:      store,
		connect:    connect,
		sender:     sender,
		logger:     logger.With(zap.String("worker", job.Name)),
		metrics:    m,
		retryDelay: DefaultRetryDelay,
	}
}

// SetRetryDelay changes the pause between setup attempts.
func (w *Worker) SetRetryDelay(d time.Duration) {
	w.retryDelay = d
}

// HandleMessage processes every object-created record of one event message
// that belongs to the worker's bucket.
func (w *Worker) HandleMessage(ctx context.Context, body []byte) error {
	refs, err := events.Parse(body)
	if err != nil {
		return err
	}

	var errs []error
	for _, ref := range refs {
		if ref.Bucket != w.job.Bucket {
			w.logger.Debug("Skipping event for another bucket", zap.String("bucket", ref.Bucket))
			continue
		}
		w.logger.Info("Processing event", zap.String("event", ref.EventName), zap.String("key", ref.Key))
		err := w.process(ctx, ref.Key)
		w.metrics.Notification(w.job.Kind, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ref.Key, err))
		}
	}
	return errors.Join(errs...)
}

func (w *Worker) process(ctx context.Context, key string) error {
	payload, err := w.store.Get(ctx, w.job.Bucket, key)
	if err != nil {
		return err
	}
	email, err := w.job.Render(payload)
	if err != nil {
		return err
	}
	if err := w.sender.Send(ctx, email); err != nil {
		return err
	}
	w.logger.Info("Email sent", zap.String("to", email.To), zap.String("subject", email.Subject))
	return nil
}

// sleep waits for the retry delay. It reports false when ctx ended first.
func (w *Worker) sleep(ctx context.Context) bool {
	t := time.NewTimer(w.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// WaitForStore blocks until the object store answers.
func (w *Worker) WaitForStore(ctx context.Context) error {
	for {
		err := w.store.Ready(ctx)
		if err == nil {
			w.logger.Info("Object store is ready")
			return nil
		}
		w.logger.Warn("Object store not ready, retrying", zap.Duration("delay", w.retryDelay), zap.Error(err))
		if !w.sleep(ctx) {
			return ctx.Err()
		}
	}
}

// Subscribe waits for the store, makes sure the bucket exists and consumes
// events until ctx ends. Every failure is retried after the retry delay.
func (w *Worker) Subscribe(ctx context.Context) error {
	if err := w.WaitForStore(ctx); err != nil {
		return nil
	}

	for ctx.Err() == nil {
		if err := w.subscribeOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("Subscription failed, retrying", zap.Duration("delay", w.retryDelay), zap.Error(err))
			if !w.sleep(ctx) {
				break
			}
		}
	}
	w.logger.Info("Subscription stopped")
	return nil
}

func (w *Worker) subscribeOnce(ctx context.Context) error {
	if err := w.store.EnsureBucket(ctx, w.job.Bucket); err != nil {
		return err
	}
	src, err := w.connect(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	w.logger.Info("Listening for bucket notifications", zap.String("bucket", w.job.Bucket))
	return src.Consume(ctx, w.job.Bucket, w.HandleMessage)
}

// HealthApp serves the liveness banner and the worker metrics.
func (w *Worker) HealthApp() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(w.job.Banner)
	})
	if w.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(w.metrics.Handler()))
	}
	return app
}

// Run serves the health endpoint on addr and consumes events until ctx ends.
func (w *Worker) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = w.job.DefaultPort
	}
	app := w.HealthApp()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.logger.Info("Health server listening", zap.String("addr", addr))
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		return app.Shutdown()
	})
	g.Go(func() error {
		return w.Subscribe(ctx)
	})
	return g.Wait()
}
