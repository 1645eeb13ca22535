// Package redisstore implements the external store on Redis.
//
// Products are JSON documents in the hash <prefix>:products keyed by id, with the sorted set
// <prefix>:products:ids (score = id) giving the id-ascending order. Waitlist rows are JSON
// documents appended to the list <prefix>:waitlist.
package redisstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/backend"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

type Store struct {
	client *redis.Client
	prefix string
}

// Open accepts either a redis:// URL or a bare host:port address.
func Open(ctx context.Context, addr, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{
			Addr:         addr,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		}
	}
	client := redis.NewClient(opts)
	client.AddHook(redisotel.NewTracingHook())
	s := New(client, prefix)
	if err := s.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "drops"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) productsKey() string { return s.prefix + ":products" }
func (s *Store) idsKey() string      { return s.prefix + ":products:ids" }
func (s *Store) waitlistKey() string { return s.prefix + ":waitlist" }

func (s *Store) ListProducts(ctx context.Context, page model.Page) ([]model.Product, int, error) {
	start := int64(page.Offset)
	if start < 0 {
		start = 0
	}
	stop := int64(-1)
	if page.Limit > 0 {
		stop = start + int64(page.Limit) - 1
	}

	var (
		card *redis.IntCmd
		rng  *redis.StringSliceCmd
	)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		card = p.ZCard(ctx, s.idsKey())
		rng = p.ZRange(ctx, s.idsKey(), start, stop)
		return nil
	})
	if err != nil {
		return nil, 0, errors.Wrap(backend.ErrUnavailable, err.Error())
	}
	total := int(card.Val())
	ids := rng.Val()
	if len(ids) == 0 {
		return nil, total, nil
	}

	docs, err := s.client.HMGet(ctx, s.productsKey(), ids...).Result()
	if err != nil {
		return nil, 0, errors.Wrap(backend.ErrUnavailable, err.Error())
	}
	out := make([]model.Product, 0, len(docs))
	for i, doc := range docs {
		raw, ok := doc.(string)
		if !ok {
			// id indexed without a document; skip it
			continue
		}
		var p model.Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, 0, errors.Wrapf(err, "decode product %s", ids[i])
		}
		out = append(out, p)
	}
	return out, total, nil
}

func (s *Store) InsertWaitlist(ctx context.Context, e model.WaitlistEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encode waitlist entry")
	}
	if err := s.client.RPush(ctx, s.waitlistKey(), b).Err(); err != nil {
		return errors.Wrap(backend.ErrUnavailable, err.Error())
	}
	return nil
}

// Upsert writes a product document and indexes its id; used for seeding.
func (s *Store) Upsert(ctx context.Context, p model.Product) error {
	b, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encode product")
	}
	id := strconv.FormatInt(p.ID, 10)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.productsKey(), id, b)
		pipe.ZAdd(ctx, s.idsKey(), &redis.Z{Score: float64(p.ID), Member: id})
		return nil
	})
	return errors.Wrapf(err, "upsert product %d", p.ID)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(backend.ErrUnavailable, err.Error())
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }
