package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store keeps per-session checkout state in redis: the cart itself, the
// applied coupon and the pending-order marker used by the payment flow.
// Every key hangs off an opaque session token and expires with the
// session, so abandoned carts clean themselves up.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

func cartKey(token string) string {
	return fmt.Sprintf("cart:%s", token)
}

func couponKey(token string) string {
	return fmt.Sprintf("session:%s:coupon", token)
}

func pendingOrderKey(token string) string {
	return fmt.Sprintf("session:%s:order", token)
}

// Load fetches the session's cart, returning an empty cart when none
// exists yet.
func (s *Store) Load(ctx context.Context, token string) (*Cart, error) {
	raw, err := s.client.Get(ctx, cartKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	if c.Items == nil {
		c.Items = map[string]*Entry{}
	}
	return &c, nil
}

func (s *Store) Save(ctx context.Context, token string, c *Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(token), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *Store) ClearCart(ctx context.Context, token string) error {
	return s.client.Del(ctx, cartKey(token)).Err()
}

// ApplyCoupon remembers the applied coupon for the session.
func (s *Store) ApplyCoupon(ctx context.Context, token string, couponID uuid.UUID) error {
	return s.client.Set(ctx, couponKey(token), couponID.String(), s.ttl).Err()
}

// AppliedCoupon returns the applied coupon id, or uuid.Nil when none.
func (s *Store) AppliedCoupon(ctx context.Context, token string) (uuid.UUID, error) {
	raw, err := s.client.Get(ctx, couponKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, nil
	}
	return id, nil
}

func (s *Store) ClearCoupon(ctx context.Context, token string) error {
	return s.client.Del(ctx, couponKey(token)).Err()
}

// SetPendingOrder marks the order awaiting payment for this session.
func (s *Store) SetPendingOrder(ctx context.Context, token string, orderID uuid.UUID) error {
	return s.client.Set(ctx, pendingOrderKey(token), orderID.String(), s.ttl).Err()
}

// PendingOrder returns the awaiting-payment order id, or uuid.Nil.
func (s *Store) PendingOrder(ctx context.Context, token string) (uuid.UUID, error) {
	raw, err := s.client.Get(ctx, pendingOrderKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, nil
	}
	return id, nil
}

func (s *Store) ClearPendingOrder(ctx context.Context, token string) error {
	return s.client.Del(ctx, pendingOrderKey(token)).Err()
}
