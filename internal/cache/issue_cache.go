package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kissaten/coupon-platform/internal/models"
)

const activeIssueTTL = 30 * time.Second

// IssueCache keeps the per-shop active-issue view in Redis for the
// public surface. The TTL is short on purpose: manual issuance and
// acquisitions invalidate explicitly, the TTL only bounds staleness
// when an invalidation is missed.
type IssueCache struct {
	rdb *redis.Client
	log *logrus.Logger
}

func NewIssueCache(rdb *redis.Client, log *logrus.Logger) *IssueCache {
	return &IssueCache{rdb: rdb, log: log}
}

func activeIssueKey(shopID string) string {
	return fmt.Sprintf("shop:%s:active-issues", shopID)
}

func (c *IssueCache) GetActiveIssues(ctx context.Context, shopID string) ([]models.ActiveIssueView, bool) {
	raw, err := c.rdb.Get(ctx, activeIssueKey(shopID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("active issue cache read failed")
		}
		return nil, false
	}

	var views []models.ActiveIssueView
	if err := json.Unmarshal(raw, &views); err != nil {
		c.log.WithError(err).Warn("active issue cache entry corrupt")
		return nil, false
	}
	return views, true
}

func (c *IssueCache) SetActiveIssues(ctx context.Context, shopID string, views []models.ActiveIssueView) {
	raw, err := json.Marshal(views)
	if err != nil {
		c.log.WithError(err).Warn("active issue cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, activeIssueKey(shopID), raw, activeIssueTTL).Err(); err != nil {
		c.log.WithError(err).Warn("active issue cache write failed")
	}
}

func (c *IssueCache) Invalidate(ctx context.Context, shopID string) {
	if err := c.rdb.Del(ctx, activeIssueKey(shopID)).Err(); err != nil {
		c.log.WithError(err).Warn("active issue cache invalidation failed")
	}
}
