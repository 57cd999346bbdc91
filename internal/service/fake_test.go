package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/store"
)

// fakeRepo is an in-memory catalog. RunInTx holds the lock for the whole
// callback and restores a snapshot when it fails.
type fakeRepo struct {
	mu        sync.Mutex
	nextID    int64
	products  map[string]models.Product
	variants  []models.ProductVariant
	movements []models.StockMovement
	media     []models.ProductMedia
	jobs      map[string]models.ImportJob
	writes    int

	failProduct map[string]error
	failMedia   map[string]error
	failJob     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products:    map[string]models.Product{},
		jobs:        map[string]models.ImportJob{},
		failProduct: map[string]error{},
		failMedia:   map[string]error{},
	}
}

type snapshot struct {
	nextID    int64
	products  map[string]models.Product
	variants  []models.ProductVariant
	movements []models.StockMovement
	media     []models.ProductMedia
	writes    int
}

func (r *fakeRepo) snapshot() snapshot {
	products := make(map[string]models.Product, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	return snapshot{
		nextID:    r.nextID,
		products:  products,
		variants:  append([]models.ProductVariant(nil), r.variants...),
		movements: append([]models.StockMovement(nil), r.movements...),
		media:     append([]models.ProductMedia(nil), r.media...),
		writes:    r.writes,
	}
}

func (r *fakeRepo) restore(s snapshot) {
	r.nextID = s.nextID
	r.products = s.products
	r.variants = s.variants
	r.movements = s.movements
	r.media = s.media
	r.writes = s.writes
}

func (r *fakeRepo) RunInTx(ctx context.Context, fn func(store.Catalog) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.snapshot()
	if err := fn((*fakeTx)(r)); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *fakeRepo) CreateImportJob(ctx context.Context, job *models.ImportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failJob != nil {
		return r.failJob
	}
	job.StartedAt = time.Now()
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeRepo) FinishImportJob(ctx context.Context, job *models.ImportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	job.FinishedAt = &now
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeRepo) GetImportJob(ctx context.Context, id string) (*models.ImportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("import job %s: %w", id, store.ErrNotFound)
	}
	return &job, nil
}

func (r *fakeRepo) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*fakeTx)(r).GetProductBySKU(ctx, sku)
}

func (r *fakeRepo) ListVariants(ctx context.Context, productID int64) ([]models.ProductVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*fakeTx)(r).ListVariants(ctx, productID)
}

func (r *fakeRepo) ListMedia(ctx context.Context, productID int64) ([]models.ProductMedia, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.ProductMedia
	for _, m := range r.media {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRepo) product(sku string) (models.Product, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[sku]
	return p, ok
}

func (r *fakeRepo) variantsOf(sku string) []models.ProductVariant {
	p, ok := r.product(sku)
	if !ok {
		return nil
	}
	v, _ := r.ListVariants(context.Background(), p.ID)
	return v
}

func (r *fakeRepo) movementsOf(sku string) []models.StockMovement {
	p, _ := r.product(sku)
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.StockMovement
	for _, m := range r.movements {
		if m.ProductID == p.ID {
			out = append(out, m)
		}
	}
	return out
}

// fakeTx is the catalog view handed to RunInTx callbacks; the lock is
// already held.
type fakeTx fakeRepo

func (t *fakeTx) id() int64 {
	t.nextID++
	return t.nextID
}

func (t *fakeTx) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	p, ok := t.products[sku]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", sku, store.ErrNotFound)
	}
	return &p, nil
}

func (t *fakeTx) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := t.failProduct[p.SKU]; err != nil {
		return err
	}
	if _, ok := t.products[p.SKU]; ok {
		return store.ErrDuplicate
	}
	p.ID = t.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	t.products[p.SKU] = *p
	t.writes++
	return nil
}

func (t *fakeTx) UpdateProduct(ctx context.Context, p *models.Product) error {
	if err := t.failProduct[p.SKU]; err != nil {
		return err
	}
	if _, ok := t.products[p.SKU]; !ok {
		return store.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	t.products[p.SKU] = *p
	t.writes++
	return nil
}

func (t *fakeTx) ListVariants(ctx context.Context, productID int64) ([]models.ProductVariant, error) {
	var out []models.ProductVariant
	for _, v := range t.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (t *fakeTx) DeleteVariantsByProduct(ctx context.Context, productID int64) (int64, error) {
	var kept []models.ProductVariant
	var n int64
	for _, v := range t.variants {
		if v.ProductID == productID {
			n++
			continue
		}
		kept = append(kept, v)
	}
	t.variants = kept
	t.writes++
	return n, nil
}

func (t *fakeTx) DeleteVariants(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var kept []models.ProductVariant
	for _, v := range t.variants {
		if !drop[v.ID] {
			kept = append(kept, v)
		}
	}
	t.variants = kept
	t.writes++
	return nil
}

func (t *fakeTx) CreateVariants(ctx context.Context, variants []models.ProductVariant) error {
	for i := range variants {
		variants[i].ID = t.id()
		variants[i].CreatedAt = time.Now()
		t.variants = append(t.variants, variants[i])
	}
	t.writes++
	return nil
}

func (t *fakeTx) UpdateVariant(ctx context.Context, v *models.ProductVariant) error {
	for i := range t.variants {
		if t.variants[i].ID == v.ID {
			t.variants[i] = *v
			t.writes++
			return nil
		}
	}
	return store.ErrNotFound
}

func (t *fakeTx) CreateStockMovements(ctx context.Context, movements []models.StockMovement) error {
	for i := range movements {
		movements[i].ID = t.id()
		t.movements = append(t.movements, movements[i])
	}
	t.writes++
	return nil
}

func (t *fakeTx) CreateMedia(ctx context.Context, media []models.ProductMedia) error {
	for i := range media {
		for sku, p := range t.products {
			if p.ID == media[i].ProductID {
				if err := t.failMedia[sku]; err != nil {
					return err
				}
			}
		}
		media[i].ID = t.id()
		t.media = append(t.media, media[i])
	}
	t.writes++
	return nil
}

func (t *fakeTx) DeleteMediaByProduct(ctx context.Context, productID int64) error {
	var kept []models.ProductMedia
	for _, m := range t.media {
		if m.ProductID != productID {
			kept = append(kept, m)
		}
	}
	t.media = kept
	t.writes++
	return nil
}
