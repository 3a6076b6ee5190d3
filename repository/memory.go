package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"latch-backend/models"
)

var _ DriverRepository = (*MemoryDriverRepository)(nil)

// MemoryDriverRepository keeps drivers in a map. Used for local runs and tests.
type MemoryDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]models.Driver
	now     func() time.Time
}

func NewMemoryDriverRepository() *MemoryDriverRepository {
	return &MemoryDriverRepository{
		drivers: make(map[string]models.Driver),
		now:     time.Now,
	}
}

func (r *MemoryDriverRepository) List(_ context.Context) ([]models.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(models.Driver) bool { return true }), nil
}

func (r *MemoryDriverRepository) Search(ctx context.Context, query string) ([]models.Driver, error) {
	if query == "" {
		return r.List(ctx)
	}
	needle := strings.ToLower(query)

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(d models.Driver) bool {
		return matchesQuery(d, needle)
	}), nil
}

func (r *MemoryDriverRepository) FindByID(_ context.Context, id string) (*models.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (r *MemoryDriverRepository) Create(_ context.Context, driver *models.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phoneTaken(driver.PhoneNumber, "") {
		return ErrDuplicatePhone
	}
	if driver.ID == "" {
		driver.ID = uuid.NewString()
	}
	now := r.now()
	if driver.CreatedAt.IsZero() {
		driver.CreatedAt = now
	}
	driver.UpdatedAt = now
	r.drivers[driver.ID] = *driver
	return nil
}

func (r *MemoryDriverRepository) Update(_ context.Context, id string, update models.DriverUpdate) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.PhoneNumber != nil && r.phoneTaken(*update.PhoneNumber, id) {
		return nil, ErrDuplicatePhone
	}
	update.Apply(&d)
	d.UpdatedAt = r.now()
	r.drivers[id] = d
	return &d, nil
}

func (r *MemoryDriverRepository) Delete(_ context.Context, id string) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.drivers, id)
	return &d, nil
}

func (r *MemoryDriverRepository) SetNextSubscriptionDate(_ context.Context, id string, next time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drivers[id]
	if !ok {
		return ErrNotFound
	}
	d.NextSubscriptionDate = &next
	d.UpdatedAt = r.now()
	r.drivers[id] = d
	return nil
}

// caller holds the lock
func (r *MemoryDriverRepository) phoneTaken(phone, exceptID string) bool {
	for id, d := range r.drivers {
		if id != exceptID && d.PhoneNumber == phone {
			return true
		}
	}
	return false
}

// caller holds the lock
func (r *MemoryDriverRepository) sorted(keep func(models.Driver) bool) []models.Driver {
	out := make([]models.Driver, 0, len(r.drivers))
	for _, d := range r.drivers {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
