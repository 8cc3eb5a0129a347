package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/theirongolddev/qview/internal/broker"
)

// Seed fills b with a few queues and messages for demos.
func Seed(b *Broker) {
	b.AddQueue("orders", broker.Map{"durable": true})
	b.AddQueue("billing", broker.Map{"durable": true})
	b.AddQueue("notifications", broker.Map{"autoDelete": true})
	b.AddQueue("qmfc-v2-ui-demo", broker.Map{"exclusive": true, "autoDelete": true})

	for i := 1; i <= 5; i++ {
		_, _ = b.Enqueue("orders", orderHeader(i), broker.Map{
			"order":    uint64(1000 + i),
			"customer": fmt.Sprintf("c-%03d", i*7),
			"total":    float64(i) * 12.5,
		})
	}
	for i := 1; i <= 3; i++ {
		_, _ = b.Enqueue("billing", broker.Map{
			"MessageId":     fmt.Sprintf("inv-%d", i),
			"ContentType":   "text/plain",
			"ContentLength": uint64(18),
			"Priority":      uint64(4),
		}, fmt.Sprintf("invoice %d is due", i))
	}
}

func orderHeader(i int) broker.Map {
	return broker.Map{
		"MessageId":     fmt.Sprintf("ord-%d", i),
		"UserId":        "shop",
		"ContentType":   "amqp/map",
		"ContentLength": uint64(64),
		"Durable":       true,
		"Priority":      uint64(i % 10),
	}
}

// Churn enqueues an order every interval until ctx is done, so a console
// watching the broker sees depths move.
func Churn(ctx context.Context, b *Broker, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	n := 100
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n++
			_, _ = b.Enqueue("orders", orderHeader(n), broker.Map{"order": uint64(1000 + n)})
		}
	}
}
