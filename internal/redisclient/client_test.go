package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"catalog-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "bulk_import:job:abc", jobKey("abc"))
	assert.Equal(t, "bulk_import:file:abc", uploadKey("abc"))
	assert.Equal(t, "stock:ANK-002", stockKey("ANK-002"))
	assert.Equal(t, "lock:import:sku:ANK-002", lockKey("import:sku:ANK-002"))
}

func newTestClient(t *testing.T) *Client {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires redis (set REDIS_TEST_ADDR)")
	}
	c, err := NewClient(addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLockSKU(t *testing.T) {
	c := newTestClient(t)
	sku := "TEST-" + uuid.New().String()

	unlock, err := c.LockSKU(context.Background(), sku, 5*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = c.LockSKU(ctx, sku, 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := c.LockSKU(context.Background(), sku, 5*time.Second)
	require.NoError(t, err)
	unlock2()
}

func TestReleaseLock_WrongToken(t *testing.T) {
	c := newTestClient(t)
	name := "test:" + uuid.New().String()
	ctx := context.Background()

	_, ok, err := c.AcquireLock(ctx, name, 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, name, "someone-else"))
	_, ok, err = c.AcquireLock(ctx, name, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJobStatusAndUpload(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	id := uuid.New().String()

	_, err := c.GetJobStatus(ctx, id)
	assert.ErrorIs(t, err, ErrCacheMiss)

	job := &models.ImportJob{ID: id, Type: models.JobTypeImport, Status: models.JobStatusDone, TotalRows: 2, SuccessCount: 2}
	require.NoError(t, c.SetJobStatus(ctx, job, time.Minute))
	cached, err := c.GetJobStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, cached.Status)

	require.NoError(t, c.StoreUpload(ctx, id, "stock.csv", []byte("sku,name\n"), time.Minute))
	name, data, err := c.LoadUpload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "stock.csv", name)
	assert.Equal(t, "sku,name\n", string(data))

	require.NoError(t, c.DeleteUpload(ctx, id))
	_, _, err = c.LoadUpload(ctx, id)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestVariantStock(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	sku := "TEST-" + uuid.New().String()

	require.NoError(t, c.SetVariantStock(ctx, sku, []models.ProductVariant{
		{Size: "S", StockQty: 5}, {Size: "M", StockQty: 10}, {Size: "L", StockQty: 0},
	}))
	require.NoError(t, c.SetVariantStock(ctx, sku, []models.ProductVariant{
		{Size: "S", StockQty: 1}, {Size: "M", StockQty: 2},
	}))

	stock, total, err := c.GetVariantStock(ctx, sku)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"S": 1, "M": 2}, stock)
	assert.Equal(t, 3, total)
}
