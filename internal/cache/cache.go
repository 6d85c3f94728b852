package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// DefaultCleanupInterval 过期条目由 janitor 定期清理，读取时过期即视为不存在
const DefaultCleanupInterval = 10 * time.Minute

// LoadError 表示 loader 失败；同一 key 的所有并发等待者拿到的是同一个错误
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cache: load %q: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader 在缓存未命中时加载数据
type Loader func(ctx context.Context) (any, error)

// Cache 进程内的带 TTL 缓存，并对同一 key 的并发加载做 single-flight 合并
type Cache struct {
	store  *gocache.Cache
	flight singleflight.Group
}

func New(cleanupInterval time.Duration) *Cache {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &Cache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Get 仅在条目存在且未过期时返回
func (c *Cache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

// Set 无条件覆盖并重置插入时间
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = time.Nanosecond
	}
	c.store.Set(key, value, ttl)
}

func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Len 返回当前条目数（可能包含尚未被清理的过期条目）
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// GetOrPopulate 命中直接返回；否则加入已有的加载，或发起唯一一次加载。
// 加载成功写入缓存，失败不写入并以 *LoadError 通知所有等待者。
func (c *Cache) GetOrPopulate(ctx context.Context, key string, ttl time.Duration, loader Loader) (any, error) {
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 加载不随单个调用方取消，避免一个断开的请求让所有等待者失败
	loadCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		// 与刚结束的加载竞争时，结果可能已经写入
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
		v, err := loader(loadCtx)
		if err != nil {
			return nil, &LoadError{Key: key, Err: err}
		}
		c.Set(key, v, ttl)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Refresh 不看现有条目直接加载，成功后覆盖；失败时保留原条目。
// 与同一 key 上进行中的加载共用一次 flight。
func (c *Cache) Refresh(ctx context.Context, key string, ttl time.Duration, loader Loader) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		v, err := loader(loadCtx)
		if err != nil {
			return nil, &LoadError{Key: key, Err: err}
		}
		c.Set(key, v, ttl)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch 是 GetOrPopulate 的类型化版本
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, loader func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.GetOrPopulate(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &LoadError{Key: key, Err: fmt.Errorf("cached value has type %T, want %T", v, zero)}
	}
	return typed, nil
}

// IsLoadError 判断错误是否来自 loader
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
