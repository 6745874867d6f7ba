// Package docstore is the Redis-backed document store behind the portal.
// Records are JSON documents at path-style keys
// (sessions/{session}/students/{phone}, config/zoomLinks); a per-session
// sorted set keyed by registration time provides roster ordering, and Redis
// pub/sub carries change notifications to roster subscribers. Timestamps come
// from the Redis server clock so ordering holds across skewed client clocks.
package docstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/tutorke/darasa/core"
)

const (
	configLinksKey = "config/zoomLinks"
	pingTimeout    = 5 * time.Second
)

func studentKey(session, phone string) string {
	return "sessions/" + session + "/students/" + phone
}

func rosterKey(session string) string {
	return "sessions/" + session + "/students"
}

func eventsChannel(session string) string {
	return "sessions/" + session + "/events"
}

// Open connects to Redis and verifies the connection.
func Open(conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// serverNow reads the store clock. Client clocks are never used for
// registeredAt/lastAccessed.
func serverNow(ctx context.Context, client *redis.Client) (time.Time, error) {
	now, err := client.Time(ctx).Result()
	if err != nil {
		return time.Time{}, wrapStoreErr(err, "reading server time")
	}
	return now.UTC(), nil
}

// wrapStoreErr translates a redis failure into the store error taxonomy so
// raw wire errors never reach a service.
func wrapStoreErr(err error, msg string) error {
	return errors.Wrap(errors.WithMessage(core.ErrUnavailable, err.Error()), msg)
}
