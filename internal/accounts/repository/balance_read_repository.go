package repository

import (
	"context"
	"time"

	"github.com/ferrobank/platform/shared/models"
	sharedredis "github.com/ferrobank/platform/shared/redis"
	goredis "github.com/redis/go-redis/v9"
)

const balanceViewKeyPrefix = "balance:view:"

// BalanceReadRepository caches derived balance views in Redis. The ledger in
// PostgreSQL stays the source of truth: the command side invalidates the view
// on every append, and entries expire on a short TTL as a backstop.
type BalanceReadRepository struct {
	cache *sharedredis.ViewCache[models.BalanceView]
}

func NewBalanceReadRepository(redisClient *goredis.Client) *BalanceReadRepository {
	return &BalanceReadRepository{
		cache: sharedredis.NewViewCache[models.BalanceView](redisClient, 30*time.Second),
	}
}

func (r *BalanceReadRepository) Get(ctx context.Context, accountNumber string) (*models.BalanceView, bool) {
	return r.cache.Get(ctx, balanceViewKeyPrefix+accountNumber)
}

func (r *BalanceReadRepository) Cache(ctx context.Context, view *models.BalanceView) {
	r.cache.Set(ctx, balanceViewKeyPrefix+view.AccountNumber, view)
}

func (r *BalanceReadRepository) Invalidate(ctx context.Context, accountNumber string) {
	r.cache.Delete(ctx, balanceViewKeyPrefix+accountNumber)
}
