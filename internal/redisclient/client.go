package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"catalog-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

//go:embed scripts/replace_stock.lua
var replaceStockScript string

// ErrCacheMiss is returned when a key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

const totalField = "_total"

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
	stockScript   *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
		stockScript:   redis.NewScript(replaceStockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection, used by the readiness check
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

func jobKey(id string) string {
	return fmt.Sprintf("bulk_import:job:%s", id)
}

func uploadKey(id string) string {
	return fmt.Sprintf("bulk_import:file:%s", id)
}

func stockKey(sku string) string {
	return fmt.Sprintf("stock:%s", sku)
}

// AcquireLock takes a distributed lock and returns the owner token needed to
// release it. ok is false when someone else holds the lock.
func (c *Client) AcquireLock(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.New().String()
	ok, err = c.rdb.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return token, ok, nil
}

// ReleaseLock releases a lock only if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, name, token string) error {
	if err := c.releaseScript.Run(ctx, c.rdb, []string{lockKey(name)}, token).Err(); err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}

// LockSKU acquires the import lock of one SKU, retrying until ctx is done.
// The returned function releases it.
func (c *Client) LockSKU(ctx context.Context, sku string, ttl time.Duration) (func(), error) {
	name := "import:sku:" + sku
	backoff := 50 * time.Millisecond

	for {
		token, ok, err := c.AcquireLock(ctx, name, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// release with a fresh context so a cancelled import still unlocks
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = c.ReleaseLock(releaseCtx, name, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock on %s: %w", sku, ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < time.Second {
			backoff *= 2
		}
	}
}

// SetJobStatus caches the latest state of a bulk job
func (c *Client) SetJobStatus(ctx context.Context, job *models.ImportJob, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, jobKey(job.ID), data, ttl).Err()
}

// GetJobStatus reads a cached bulk job
func (c *Client) GetJobStatus(ctx context.Context, id string) (*models.ImportJob, error) {
	data, err := c.rdb.Get(ctx, jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var job models.ImportJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode cached job %s: %w", id, err)
	}
	return &job, nil
}

// StoreUpload keeps an uploaded file until a worker picks it up
func (c *Client) StoreUpload(ctx context.Context, id, fileName string, data []byte, ttl time.Duration) error {
	key := uploadKey(id)

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, "name", fileName, "data", data)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// LoadUpload returns a stored upload
func (c *Client) LoadUpload(ctx context.Context, id string) (fileName string, data []byte, err error) {
	result, err := c.rdb.HGetAll(ctx, uploadKey(id)).Result()
	if err != nil {
		return "", nil, err
	}
	if len(result) == 0 {
		return "", nil, ErrCacheMiss
	}
	return result["name"], []byte(result["data"]), nil
}

// DeleteUpload drops a stored upload once it has been imported
func (c *Client) DeleteUpload(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, uploadKey(id)).Err()
}

// SetVariantStock replaces the storefront stock hash of a product
func (c *Client) SetVariantStock(ctx context.Context, sku string, variants []models.ProductVariant) error {
	args := make([]interface{}, 0, 1+2*len(variants))
	args = append(args, 0)
	for _, v := range variants {
		args = append(args, v.Size, v.StockQty)
	}

	if err := c.stockScript.Run(ctx, c.rdb, []string{stockKey(sku)}, args...).Err(); err != nil {
		return fmt.Errorf("replace stock script failed: %w", err)
	}
	return nil
}

// GetVariantStock returns per-size stock and the total for a product
func (c *Client) GetVariantStock(ctx context.Context, sku string) (map[string]int, int, error) {
	result, err := c.rdb.HGetAll(ctx, stockKey(sku)).Result()
	if err != nil {
		return nil, 0, err
	}
	if len(result) == 0 {
		return nil, 0, ErrCacheMiss
	}

	stock := make(map[string]int, len(result))
	total := 0
	for field, value := range result {
		n, _ := strconv.Atoi(value)
		if field == totalField {
			total = n
			continue
		}
		stock[field] = n
	}
	return stock, total, nil
}
