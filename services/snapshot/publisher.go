// Package snapshot shares resolved dashboard snapshots through redis
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flashbots/streamscan/services/resolver"
	"github.com/lithammer/shortuuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultKeyPrefix = "streamscan"

var ErrNoSnapshot = errors.New("no snapshot stored")

// Envelope is what gets stored and published
type Envelope struct {
	InstanceID  string             `json:"instance_id"`
	PublishedAt time.Time          `json:"published_at"`
	Snapshot    *resolver.Snapshot `json:"snapshot"`
}

type RedisPublisher struct {
	log        *logrus.Entry
	client     *redis.Client
	instanceID string
	key        string
	channel    string
}

// NewRedisPublisher accepts either a redis:// URL or a plain host:port
func NewRedisPublisher(log *logrus.Entry, redisURI, keyPrefix string) (*RedisPublisher, error) {
	opts, err := redisOptions(redisURI)
	if err != nil {
		return nil, err
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	instanceID := shortuuid.New()[:8]
	return &RedisPublisher{
		log:        log.WithFields(logrus.Fields{"service": "snapshot-publisher", "instance": instanceID}),
		client:     client,
		instanceID: instanceID,
		key:        keyPrefix + ":snapshot",
		channel:    keyPrefix + ":snapshots",
	}, nil
}

func redisOptions(redisURI string) (*redis.Options, error) {
	if redisURI == "" {
		return nil, errors.New("redis uri is empty")
	}
	if strings.Contains(redisURI, "://") {
		return redis.ParseURL(redisURI)
	}
	return &redis.Options{Addr: redisURI}, nil
}

func (p *RedisPublisher) InstanceID() string {
	return p.instanceID
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Publish stores the snapshot as the latest one and announces it on the channel
func (p *RedisPublisher) Publish(ctx context.Context, snapshot *resolver.Snapshot) error {
	payload, err := json.Marshal(&Envelope{
		InstanceID:  p.instanceID,
		PublishedAt: time.Now().UTC(),
		Snapshot:    snapshot,
	})
	if err != nil {
		return err
	}

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.key, payload, 0)
	pipe.Publish(ctx, p.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	p.log.WithField("seq", snapshot.Status.Seq).Debug("snapshot published")
	return nil
}

// Latest returns the most recently stored snapshot, from any instance
func (p *RedisPublisher) Latest(ctx context.Context) (*Envelope, error) {
	payload, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	} else if err != nil {
		return nil, err
	}

	envelope := new(Envelope)
	if err := json.Unmarshal(payload, envelope); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return envelope, nil
}

// Subscribe delivers snapshots published by any instance until ctx is done. Undecodable
// messages are skipped, and messages are dropped while the consumer is not keeping up.
func (p *RedisPublisher) Subscribe(ctx context.Context) (<-chan *Envelope, error) {
	pubsub := p.client.Subscribe(ctx, p.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", p.channel, err)
	}

	ch := make(chan *Envelope, 16)
	go func() {
		defer close(ch)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				envelope := new(Envelope)
				if err := json.Unmarshal([]byte(msg.Payload), envelope); err != nil {
					p.log.WithError(err).Warn("could not decode snapshot message")
					continue
				}
				select {
				case ch <- envelope:
				default:
					p.log.Warn("dropping snapshot message, subscriber is blocked")
				}
			}
		}
	}()
	return ch, nil
}
