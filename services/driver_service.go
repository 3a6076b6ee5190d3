package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"

	"latch-backend/models"
	"latch-backend/repository"
	"latch-backend/utils"
)

// CreateDriverInput mirrors the add-driver request.
type CreateDriverInput struct {
	Name                 string
	PhoneNumber          string
	SubscriptionStatus   string
	NextSubscriptionDate *time.Time
}

// UpdateDriverInput mirrors the update-driver request. Nil fields are left alone.
type UpdateDriverInput struct {
	Name                      *string
	PhoneNumber               *string
	SubscriptionStatus        *string
	NextSubscriptionDate      *time.Time
	ClearNextSubscriptionDate bool
}

type DriverService struct {
	drivers repository.DriverRepository
}

func NewDriverService(drivers repository.DriverRepository) *DriverService {
	return &DriverService{drivers: drivers}
}

func (s *DriverService) List(ctx context.Context) ([]models.Driver, error) {
	drivers, err := s.drivers.List(ctx)
	if err != nil {
		return nil, StoreError(err, "Failed to retrieve drivers")
	}
	return drivers, nil
}

// Search with a blank query behaves like List.
func (s *DriverService) Search(ctx context.Context, query string) ([]models.Driver, error) {
	if strings.TrimSpace(query) == "" {
		return s.List(ctx)
	}
	drivers, err := s.drivers.Search(ctx, query)
	if err != nil {
		return nil, StoreError(err, "Failed to search drivers")
	}
	return drivers, nil
}

func (s *DriverService) Get(ctx context.Context, id string) (*models.Driver, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ValidationError("Driver ID is required.")
	}
	driver, err := s.drivers.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err)
	}
	return driver, nil
}

func (s *DriverService) Create(ctx context.Context, input CreateDriverInput) (*models.Driver, error) {
	name := strings.TrimSpace(input.Name)
	phone := utils.NormalizePhone(input.PhoneNumber)
	if name == "" || phone == "" {
		return nil, ValidationError("Name and phone number are required.")
	}
	if !utils.ValidatePhone(phone) {
		return nil, ValidationError("Phone number must contain only digits")
	}
	status, err := models.ParseSubscriptionStatus(input.SubscriptionStatus)
	if err != nil {
		return nil, ValidationError("Subscription status must be active or inactive")
	}

	driver := &models.Driver{
		Name:                 name,
		PhoneNumber:          phone,
		SubscriptionStatus:   status,
		NextSubscriptionDate: input.NextSubscriptionDate,
	}
	if err := s.drivers.Create(ctx, driver); err != nil {
		return nil, s.translate(err)
	}
	log.Printf("Driver %s (%s) added", driver.Name, driver.ID)
	return driver, nil
}

// Update returns the record as stored after the change.
func (s *DriverService) Update(ctx context.Context, id string, input UpdateDriverInput) (*models.Driver, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ValidationError("Driver ID is required.")
	}

	var update models.DriverUpdate
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ValidationError("Name cannot be empty")
		}
		update.Name = &name
	}
	if input.PhoneNumber != nil {
		phone := utils.NormalizePhone(*input.PhoneNumber)
		if !utils.ValidatePhone(phone) {
			return nil, ValidationError("Phone number must contain only digits")
		}
		update.PhoneNumber = &phone
	}
	if input.SubscriptionStatus != nil {
		status, err := models.ParseSubscriptionStatus(*input.SubscriptionStatus)
		if err != nil {
			return nil, ValidationError("Subscription status must be active or inactive")
		}
		update.SubscriptionStatus = &status
	}
	update.ClearNextSubscriptionDate = input.ClearNextSubscriptionDate
	if !input.ClearNextSubscriptionDate {
		update.NextSubscriptionDate = input.NextSubscriptionDate
	}

	driver, err := s.drivers.Update(ctx, id, update)
	if err != nil {
		return nil, s.translate(err)
	}
	return driver, nil
}

func (s *DriverService) Delete(ctx context.Context, id string) (*models.Driver, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ValidationError("Driver ID is required.")
	}
	driver, err := s.drivers.Delete(ctx, id)
	if err != nil {
		return nil, s.translate(err)
	}
	log.Printf("Driver %s (%s) deleted", driver.Name, driver.ID)
	return driver, nil
}

func (s *DriverService) translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return NotFoundError("Driver not found.")
	case errors.Is(err, repository.ErrDuplicatePhone):
		return ConflictError("A driver with this phone number already exists")
	default:
		return StoreError(err, "Database error")
	}
}
