package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/kafka"
	pkgredis "github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/redis"
)

var (
	notifyReason string
	notifyKafka  bool
	notifyRedis  bool
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Tell running services that the options changed",
	Long: `Publishes an options-changed event so every running service drops its
index and rebuilds on the next query. The event goes to the Kafka topic, the
Redis channel, or both.`,
	Args: cobra.NoArgs,
	RunE: runNotify,
}

func init() {
	notifyCmd.Flags().StringVar(&notifyReason, "reason", "", "free-form reason recorded in the event")
	notifyCmd.Flags().BoolVar(&notifyKafka, "kafka", false, "publish to the Kafka change topic")
	notifyCmd.Flags().BoolVar(&notifyRedis, "redis", false, "publish to the Redis change channel")
	rootCmd.AddCommand(notifyCmd)
}

// Notifier delivers one change event over a single transport.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event consumer.ChangeEvent) error
	Close() error
}

// newNotifiers is replaced in tests.
var newNotifiers = dialNotifiers

var errNoTransport = errors.New("no transport selected: pass --kafka or --redis, or enable one in the config")

func runNotify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	useKafka := notifyKafka || (!cmd.Flags().Changed("kafka") && cfg.Invalidation.KafkaEnabled)
	useRedis := notifyRedis || (!cmd.Flags().Changed("redis") && cfg.Invalidation.RedisEnabled)
	if !useKafka && !useRedis {
		return errNoTransport
	}

	notifiers, err := newNotifiers(cfg, useKafka, useRedis)
	if err != nil {
		return err
	}
	defer func() {
		for _, n := range notifiers {
			if err := n.Close(); err != nil {
				slog.Warn("closing notifier", "transport", n.Name(), "error", err)
			}
		}
	}()

	origin, _ := os.Hostname()
	event := consumer.ChangeEvent{
		Origin: origin,
		Reason: notifyReason,
		At:     time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), 10*time.Second)
	defer cancel()

	var errs []error
	for _, n := range notifiers {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Notified via %s.\n", n.Name())
	}
	return errors.Join(errs...)
}

func dialNotifiers(cfg *config.Config, useKafka, useRedis bool) ([]Notifier, error) {
	var out []Notifier
	if useKafka {
		out = append(out, &kafkaNotifier{
			producer: kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.OptionsChanged),
		})
	}
	if useRedis {
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			for _, n := range out {
				n.Close()
			}
			return nil, err
		}
		out = append(out, &redisNotifier{client: client, channel: cfg.Invalidation.RedisChannel})
	}
	return out, nil
}

type kafkaNotifier struct {
	producer *kafka.Producer
}

func (k *kafkaNotifier) Name() string { return "kafka" }

func (k *kafkaNotifier) Notify(ctx context.Context, event consumer.ChangeEvent) error {
	return k.producer.Publish(ctx, event.Origin, event)
}

func (k *kafkaNotifier) Close() error { return k.producer.Close() }

type redisNotifier struct {
	client  *pkgredis.Client
	channel string
}

func (r *redisNotifier) Name() string { return "redis" }

func (r *redisNotifier) Notify(ctx context.Context, event consumer.ChangeEvent) error {
	payload, err := event.Encode()
	if err != nil {
		return err
	}
	receivers, err := r.client.Publish(ctx, r.channel, payload)
	if err != nil {
		return err
	}
	slog.Debug("change event published", "channel", r.channel, "receivers", receivers)
	return nil
}

func (r *redisNotifier) Close() error { return r.client.Close() }
