package runner

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Endpoint is a network address of one server.
type Endpoint struct {
	Network string // "tcp" or "unix"
	Addr    string
}

// String returns the address in the form printed by PrintEnvData.
func (e Endpoint) String() string {
	if e.Network == "unix" {
		return "unix://" + e.Addr
	}
	return e.Addr
}

// Dialer creates connections. Tests swap it for a fake.
type Dialer interface {
	Dial(ep Endpoint, password string) Conn
	DialCluster(addrs []string, password string) Conn
}

// redisDialer creates go-redis clients speaking RESP2, the protocol the
// assertion values are written against.
type redisDialer struct{}

// DefaultDialer returns the go-redis backed Dialer.
func DefaultDialer() Dialer {
	return redisDialer{}
}

func (redisDialer) Dial(ep Endpoint, password string) Conn {
	network := ep.Network
	if network == "" {
		network = "tcp"
	}
	return &redisConn{client: redis.NewClient(&redis.Options{
		Network:  network,
		Addr:     ep.Addr,
		Password: password,
		Protocol: 2,
	})}
}

func (redisDialer) DialCluster(addrs []string, password string) Conn {
	return &redisConn{client: redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:    addrs,
		Password: password,
		Protocol: 2,
	})}
}

type redisConn struct {
	client redis.UniversalClient
}

// Do executes one command. A nil reply is a successful nil result.
func (c *redisConn) Do(ctx context.Context, args ...interface{}) (interface{}, error) {
	res, err := c.client.Do(ctx, args...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return res, err
}

func (c *redisConn) Close() error {
	return c.client.Close()
}
