// Package cache wires the dashboard to Valkey (Redis protocol) and holds
// the API response cache used by the resource stores.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyOptions locates the Valkey server.
type ValkeyOptions struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (o ValkeyOptions) addr() string { return net.JoinHostPort(o.Host, o.Port) }

// ConnectValkey returns a client for opts once the server answers a PING
// (bounded to five seconds).
func ConnectValkey(ctx context.Context, opts ValkeyOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       opts.addr(),
		Password:   opts.Password,
		DB:         opts.DB,
		ClientName: "blogdash",
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping %s: %w", opts.addr(), err)
	}

	slog.Info("valkey connected", "addr", opts.addr(), "db", opts.DB)
	return client, nil
}
