// Package cache はタグ単位で無効化できるプロセス内の読み取りキャッシュを提供する。
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/issuetracker/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL はキャッシュエントリの既定の最大保持期間。
const DefaultTTL = 5 * time.Minute

type entry struct {
	value   any
	tags    []string
	expires time.Time
}

// TagCache はキーごとに読み込み結果を保持し、タグ単位で一括無効化するキャッシュ。
// 保持した値は呼び出し側で共有されるため、書き換えてはならない。
type TagCache struct {
	mu      sync.Mutex
	entries map[string]entry
	// gens はタグごとの世代番号。InvalidateTagのたびに進む。
	gens map[string]uint64

	group   singleflight.Group
	ttl     time.Duration
	now     func() time.Time
	metrics metrics.MetricsCollector
}

// NewTagCache はTagCacheを生成する。ttlが0以下の場合はDefaultTTLを使用する。
func NewTagCache(ttl time.Duration, mc metrics.MetricsCollector) *TagCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &TagCache{
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
		ttl:     ttl,
		now:     time.Now,
		metrics: mc,
	}
}

// Remember はkeyのキャッシュ値を返す。
// キャッシュがない場合はloadで読み込み、tagsを付けて保存する。
// 同じkeyかつ同じタグ世代の同時読み込みは1回にまとめる。loadのエラーはキャッシュしない。
// 読み込み中にtagsのいずれかが無効化された場合、結果は返すが保存しない。
//
// まとめられたloadは呼び出し元のキャンセルを引き継がないctxで実行される。
// ctxがキャンセルされた呼び出し元だけがctx.Err()で戻る。
func (c *TagCache) Remember(ctx context.Context, key string, tags []string, load func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		c.metrics.RecordCacheEvent(metrics.CacheHit)
		return e.value, nil
	}
	snapshot := c.generations(tags)
	c.mu.Unlock()

	c.metrics.RecordCacheEvent(metrics.CacheMiss)

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey(key, snapshot), func() (any, error) {
		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.unchangedSince(tags, snapshot) {
			c.entries[key] = entry{value: value, tags: tags, expires: c.now().Add(c.ttl)}
		}
		return value, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// flightKey はkeyにタグ世代を付けたsingleflightのキー。
// 無効化の後に来た呼び出しは、無効化前に始まった読み込みに合流しない。
func flightKey(key string, gens []uint64) string {
	b := []byte(key)
	for _, g := range gens {
		b = append(b, '@')
		b = strconv.AppendUint(b, g, 10)
	}
	return string(b)
}

// InvalidateTag はtagが付いた全エントリを破棄する。
func (c *TagCache) InvalidateTag(tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[tag]++
	for key, e := range c.entries {
		for _, t := range e.tags {
			if t == tag {
				delete(c.entries, key)
				break
			}
		}
	}
	c.metrics.RecordCacheEvent(metrics.CacheInvalidate)
}

// Len は保持しているエントリ数を返す。期限切れのエントリも含む。
func (c *TagCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TagCache) generations(tags []string) []uint64 {
	out := make([]uint64, len(tags))
	for i, t := range tags {
		out[i] = c.gens[t]
	}
	return out
}

func (c *TagCache) unchangedSince(tags []string, snapshot []uint64) bool {
	for i, t := range tags {
		if c.gens[t] != snapshot[i] {
			return false
		}
	}
	return true
}

// Remember はTagCache.Rememberの型付き版。
func Remember[T any](ctx context.Context, c *TagCache, key string, tags []string, load func(context.Context) (T, error)) (T, error) {
	v, err := c.Remember(ctx, key, tags, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, errTypeMismatch{key: key}
	}
	return typed, nil
}

type errTypeMismatch struct {
	key string
}

func (e errTypeMismatch) Error() string {
	return "cache: value type mismatch for key " + e.key
}
