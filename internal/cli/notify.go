package cli

import (
	"context"
	"fmt"
	"strings"

	"eshop/internal/config"
	"eshop/internal/notify"
	"eshop/pkg/kafkastream"
	"eshop/pkg/mailbox"
	"eshop/pkg/metrics"
	"eshop/pkg/rabbitmq"
	"eshop/pkg/sqsqueue"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewNotifyCommand creates the notify command.
func NewNotifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notify <welcome|orders>",
		Short: "Run an email notification worker",
		Long: `Run an email notification worker.

The worker listens for object creation events of its mailbox bucket
(user-registrations for welcome, order-confirmations for orders), renders the
email from the stored payload and sends it over SMTP. EVENT_SOURCE selects
where the events come from: amqp, sqs or kafka.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"welcome", "orders"},
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := notify.JobByName(args[0])
			if err != nil {
				return err
			}
			cfg, log, err := rootOpts.load()
			if err != nil {
				return err
			}
			defer log.Sync()
			return runNotify(cmd.Context(), job, cfg, log.With(zap.String("service", job.Name)))
		},
	}
}

func runNotify(ctx context.Context, job notify.Job, cfg config.Config, log *zap.Logger) error {
	mb, err := mailbox.New(ctx, mailboxConfig(cfg))
	if err != nil {
		return err
	}
	connect, err := connector(ctx, cfg, log)
	if err != nil {
		return err
	}
	sender := notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)

	w := notify.NewWorker(job, mb, connect, sender, log, metrics.New("notify"))
	return w.Run(ctx, listenAddr(cfg.WorkerPort))
}

// connector returns the event source selected by EVENT_SOURCE.
func connector(ctx context.Context, cfg config.Config, log *zap.Logger) (notify.Connector, error) {
	switch cfg.EventSource {
	case "", "amqp":
		return func(ctx context.Context) (notify.Source, error) {
			c, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
			if err != nil {
				return nil, err
			}
			return c, nil
		}, nil
	case "sqs":
		awsCfg, err := mailbox.LoadAWSConfig(ctx, mailboxConfig(cfg))
		if err != nil {
			return nil, err
		}
		c, err := sqsqueue.New(awsCfg, cfg.SQSQueueURL, log)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (notify.Source, error) { return c, nil }, nil
	case "kafka":
		c, err := kafkastream.New(kafkastream.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroup,
		}, log)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (notify.Source, error) { return c, nil }, nil
	}
	return nil, fmt.Errorf("unknown EVENT_SOURCE %q (want amqp, sqs or kafka)", cfg.EventSource)
}

// listenAddr accepts "8080" as well as ":8080"; empty keeps the job default.
func listenAddr(port string) string {
	if port == "" || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
