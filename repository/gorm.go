package repository

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"latch-backend/models"
)

var _ DriverRepository = (*GormDriverRepository)(nil)

// GormDriverRepository stores drivers in a SQL table through GORM (postgres or sqlite).
type GormDriverRepository struct {
	db *gorm.DB
}

func NewGormDriverRepository(db *gorm.DB) *GormDriverRepository {
	return &GormDriverRepository{db: db}
}

func (r *GormDriverRepository) Migrate() error {
	return errors.Wrap(r.db.AutoMigrate(&models.Driver{}), "migrate drivers")
}

func (r *GormDriverRepository) List(ctx context.Context) ([]models.Driver, error) {
	var drivers []models.Driver
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&drivers).Error; err != nil {
		return nil, errors.Wrap(err, "list drivers")
	}
	return drivers, nil
}

func (r *GormDriverRepository) Search(ctx context.Context, query string) ([]models.Driver, error) {
	if query == "" {
		return r.List(ctx)
	}
	if r.db.Dialector.Name() == "sqlite" {
		// SQLite's LOWER() only folds ASCII letters.
		return r.searchFolded(ctx, query)
	}
	pattern := likePattern(query)

	var drivers []models.Driver
	err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(phone_number) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("created_at DESC").
		Find(&drivers).Error
	if err != nil {
		return nil, errors.Wrap(err, "search drivers")
	}
	return drivers, nil
}

func (r *GormDriverRepository) searchFolded(ctx context.Context, query string) ([]models.Driver, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "search drivers")
	}
	needle := strings.ToLower(query)
	drivers := make([]models.Driver, 0, len(all))
	for _, d := range all {
		if matchesQuery(d, needle) {
			drivers = append(drivers, d)
		}
	}
	return drivers, nil
}

func (r *GormDriverRepository) FindByID(ctx context.Context, id string) (*models.Driver, error) {
	return r.first(r.db.WithContext(ctx), id)
}

func (r *GormDriverRepository) Create(ctx context.Context, driver *models.Driver) error {
	db := r.db.WithContext(ctx)
	if err := r.checkPhone(db, driver.PhoneNumber, ""); err != nil {
		return err
	}
	if err := db.Create(driver).Error; err != nil {
		return translate(err, "create driver")
	}
	return nil
}

func (r *GormDriverRepository) Update(ctx context.Context, id string, update models.DriverUpdate) (*models.Driver, error) {
	var updated *models.Driver
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := r.first(tx, id)
		if err != nil {
			return err
		}
		if update.PhoneNumber != nil && *update.PhoneNumber != existing.PhoneNumber {
			if err := r.checkPhone(tx, *update.PhoneNumber, id); err != nil {
				return err
			}
		}

		fields := map[string]interface{}{"updated_at": time.Now()}
		if update.Name != nil {
			fields["name"] = *update.Name
		}
		if update.PhoneNumber != nil {
			fields["phone_number"] = *update.PhoneNumber
		}
		if update.SubscriptionStatus != nil {
			fields["subscription_status"] = *update.SubscriptionStatus
		}
		if update.ClearNextSubscriptionDate {
			fields["next_subscription_date"] = nil
		} else if update.NextSubscriptionDate != nil {
			fields["next_subscription_date"] = *update.NextSubscriptionDate
		}

		if err := tx.Model(&models.Driver{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return translate(err, "update driver")
		}
		updated, err = r.first(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *GormDriverRepository) Delete(ctx context.Context, id string) (*models.Driver, error) {
	var deleted *models.Driver
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := r.first(tx, id)
		if err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Driver{})
		if result.Error != nil {
			return errors.Wrap(result.Error, "delete driver")
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *GormDriverRepository) SetNextSubscriptionDate(ctx context.Context, id string, next time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Driver{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"next_subscription_date": next, "updated_at": time.Now()})
	if result.Error != nil {
		return errors.Wrap(result.Error, "set next subscription date")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormDriverRepository) first(db *gorm.DB, id string) (*models.Driver, error) {
	var driver models.Driver
	if err := db.Where("id = ?", id).First(&driver).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find driver")
	}
	return &driver, nil
}

// checkPhone rejects a phone used by any driver other than exceptID.
func (r *GormDriverRepository) checkPhone(db *gorm.DB, phone, exceptID string) error {
	var existing models.Driver
	q := db.Where("phone_number = ?", phone)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.First(&existing).Error; err == nil {
		return ErrDuplicatePhone
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(err, "check phone")
	}
	return nil
}

// translate maps the unique index violation that slips past checkPhone under a race.
func translate(err error, op string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicatePhone
	}
	return errors.Wrap(err, op)
}
