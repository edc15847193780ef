// Package query caches day-scoped reads behind their YYYYMMDD partition
// key. Concurrent readers of the same key share one in-flight fetch, and
// every exercise or diary mutation invalidates the key so the next read
// hits the server again.
package query

import (
	"context"
	"time"

	"github.com/c-pro/geche"
	"golang.org/x/sync/singleflight"

	"homefit/internal/models"
)

const DefaultTTL = time.Minute

// MainFetcher fetches one page of the day aggregate. Satisfied by the API
// client.
type MainFetcher interface {
	Main(ctx context.Context, dateKey string, page int) (models.DayAggregate, error)
}

type Cache struct {
	days    geche.Geche[string, models.DayAggregate]
	inround singleflight.Group
	fetch   MainFetcher
}

func NewCache(ctx context.Context, fetch MainFetcher, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		days:  geche.NewMapTTLCache[string, models.DayAggregate](ctx, ttl, time.Minute),
		fetch: fetch,
	}
}

// Day returns the merged day aggregate for a key, serving from cache when
// fresh. All diary pages are fetched and folded into one aggregate: page
// totals are summed and lists concatenated (pages past the first carry only
// diaries, so exercises are not duplicated).
func (c *Cache) Day(ctx context.Context, dateKey string) (models.DayAggregate, error) {
	if agg, err := c.days.Get(dateKey); err == nil {
		return agg, nil
	}

	v, err, _ := c.inround.Do(dateKey, func() (any, error) {
		agg, err := c.fetchAll(ctx, dateKey)
		if err != nil {
			return models.DayAggregate{}, err
		}
		c.days.Set(dateKey, agg)
		return agg, nil
	})
	if err != nil {
		return models.DayAggregate{}, err
	}
	return v.(models.DayAggregate), nil
}

func (c *Cache) fetchAll(ctx context.Context, dateKey string) (models.DayAggregate, error) {
	var merged models.DayAggregate
	for page := 0; ; page++ {
		agg, err := c.fetch.Main(ctx, dateKey, page)
		if err != nil {
			return models.DayAggregate{}, err
		}

		merged.TotalTimeMs += agg.TotalTimeMs
		merged.Exercises = append(merged.Exercises, agg.Exercises...)
		merged.Diaries.Content = append(merged.Diaries.Content, agg.Diaries.Content...)
		merged.Diaries.PageNumber = agg.Diaries.PageNumber
		merged.Diaries.IsLast = agg.Diaries.IsLast

		if agg.Diaries.IsLast {
			return merged, nil
		}
	}
}

// Invalidate drops the cached aggregate for a day key. Called after every
// mutation touching that day.
func (c *Cache) Invalidate(dateKey string) {
	_ = c.days.Del(dateKey)
}
