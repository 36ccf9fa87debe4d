package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"qirsh/internal/models"

	"github.com/redis/go-redis/v9"
)

// CacheService is the Redis-backed read cache for wallets. Balance truth
// lives in PostgreSQL; every balance mutation invalidates the cached copy.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheService creates a cache service with a default TTL.
func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

func walletKey(ownerID uint) string {
	return fmt.Sprintf("wallet:%d", ownerID)
}

// GetWallet returns the cached wallet for an owner, or a miss.
func (s *CacheService) GetWallet(ctx context.Context, ownerID uint) (*models.Wallet, bool, error) {
	data, err := s.client.Get(ctx, walletKey(ownerID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached wallet: %w", err)
	}
	var wallet models.Wallet
	if err := json.Unmarshal(data, &wallet); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached wallet: %w", err)
	}
	return &wallet, true, nil
}

// SetWallet caches a wallet snapshot.
func (s *CacheService) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to encode wallet: %w", err)
	}
	return s.client.Set(ctx, walletKey(wallet.OwnerID), data, s.ttl).Err()
}

// InvalidateWallet drops the cached snapshot after a balance mutation.
func (s *CacheService) InvalidateWallet(ctx context.Context, ownerID uint) error {
	return s.client.Del(ctx, walletKey(ownerID)).Err()
}

// HealthCheck pings the cache server.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *CacheService) Close() error {
	return s.client.Close()
}
