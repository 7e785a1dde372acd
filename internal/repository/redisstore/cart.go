// Package redisstore keeps shopping carts in Redis as JSON values with a
// sliding TTL.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/repository"
	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix       = "storefront:cart:"
	maxWatchRetries = 5
)

type cartStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewCartStore creates a CartStore on client. A ttl of zero keeps carts forever.
func NewCartStore(client *goredis.Client, ttl time.Duration) repository.CartStore {
	return &cartStore{client: client, ttl: ttl}
}

func key(userID string) string { return keyPrefix + userID }

type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func decode(userID string, cmd *goredis.StringCmd) (*entity.Cart, error) {
	data, err := cmd.Bytes()
	if errors.Is(err, goredis.Nil) {
		return entity.NewCart(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart %s: %w", userID, err)
	}
	cart := entity.NewCart(userID)
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart %s: %w", userID, err)
	}
	cart.UserID = userID
	return cart, nil
}

func read(ctx context.Context, g getter, userID string) (*entity.Cart, error) {
	return decode(userID, g.Get(ctx, key(userID)))
}

func (s *cartStore) GetCart(ctx context.Context, userID string) (*entity.Cart, error) {
	return read(ctx, s.client, userID)
}

func (s *cartStore) SaveCart(ctx context.Context, cart *entity.Cart) error {
	if cart.IsEmpty() {
		return s.ClearCart(ctx, cart.UserID)
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart %s: %w", cart.UserID, err)
	}
	if err := s.client.Set(ctx, key(cart.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart %s: %w", cart.UserID, err)
	}
	return nil
}

func (s *cartStore) ClearCart(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart %s: %w", userID, err)
	}
	return nil
}

// TakeCart uses GETDEL so only one concurrent checkout receives the lines.
func (s *cartStore) TakeCart(ctx context.Context, userID string) (*entity.Cart, error) {
	return decode(userID, s.client.GetDel(ctx, key(userID)))
}

// RestoreCart merges cart into whatever the user added since it was taken,
// retrying when another writer touches the key mid-merge.
func (s *cartStore) RestoreCart(ctx context.Context, cart *entity.Cart) error {
	if cart.IsEmpty() {
		return nil
	}
	k := key(cart.UserID)
	merge := func(tx *goredis.Tx) error {
		current, err := read(ctx, tx, cart.UserID)
		if err != nil {
			return err
		}
		current.Merge(cart)
		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to encode cart %s: %w", cart.UserID, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, k, data, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, merge, k)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to restore cart %s: %w", cart.UserID, err)
		}
		return nil
	}
	return fmt.Errorf("failed to restore cart %s: too much contention", cart.UserID)
}
