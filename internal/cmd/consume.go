package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/messaging"
	"github.com/egannguyen/pharma-storefront/internal/messaging/kafka"
	"github.com/spf13/cobra"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Log order events read from Kafka",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(cfg.Kafka.Brokers) == 0 {
			return errors.New("consume requires kafka.brokers")
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		broker := kafka.NewKafkaBroker(cfg.Kafka.Brokers)
		defer broker.Close()

		slog.Info("Kafka consumers started", "topics", messaging.Topics, "group_id", cfg.Kafka.GroupID)
		consumeAll(ctx, broker, cfg.Kafka.GroupID, logEvent)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}

// consumeAll runs one consumer per order topic until ctx is done.
func consumeAll(ctx context.Context, sub messaging.Subscriber, groupID string, handler messaging.Handler) {
	var wg sync.WaitGroup
	for _, topic := range messaging.Topics {
		topic := topic
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Consume(ctx, topic, groupID, handler)
		}()
	}
	wg.Wait()
}

func logEvent(ctx context.Context, env entity.EventEnvelope) error {
	slog.InfoContext(ctx, "Order event", "type", env.Type, "order_id", env.OrderID, "user_id", env.UserID, "payload", string(env.Payload))
	return nil
}
