package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

// ParseSubscriptionStatus is case-insensitive. An empty value means inactive.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return SubscriptionInactive, nil
	case string(SubscriptionActive):
		return SubscriptionActive, nil
	case string(SubscriptionInactive):
		return SubscriptionInactive, nil
	default:
		return "", fmt.Errorf("invalid subscription status %q", s)
	}
}

func (s SubscriptionStatus) IsActive() bool {
	return strings.EqualFold(string(s), string(SubscriptionActive))
}

type Driver struct {
	ID                   string             `gorm:"type:varchar(36);primaryKey" json:"_id"`
	Name                 string             `gorm:"not null" json:"name"`
	PhoneNumber          string             `gorm:"uniqueIndex;not null" json:"phoneNumber"`
	SubscriptionStatus   SubscriptionStatus `gorm:"type:varchar(10);not null;default:'inactive'" json:"subscriptionStatus"`
	NextSubscriptionDate *time.Time         `json:"nextSubscriptionDate"`
	CreatedAt            time.Time          `gorm:"index" json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// Assign the id before creating, unless the caller already set one
func (d *Driver) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return
}

// DriverUpdate carries the fields of a partial update. Nil pointers are left alone.
type DriverUpdate struct {
	Name                      *string
	PhoneNumber               *string
	SubscriptionStatus        *SubscriptionStatus
	NextSubscriptionDate      *time.Time
	ClearNextSubscriptionDate bool
}

func (u DriverUpdate) IsEmpty() bool {
	return u.Name == nil && u.PhoneNumber == nil && u.SubscriptionStatus == nil &&
		u.NextSubscriptionDate == nil && !u.ClearNextSubscriptionDate
}

// Apply copies the update onto d. Timestamps are left to the caller.
func (u DriverUpdate) Apply(d *Driver) {
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.PhoneNumber != nil {
		d.PhoneNumber = *u.PhoneNumber
	}
	if u.SubscriptionStatus != nil {
		d.SubscriptionStatus = *u.SubscriptionStatus
	}
	if u.ClearNextSubscriptionDate {
		d.NextSubscriptionDate = nil
	} else if u.NextSubscriptionDate != nil {
		t := *u.NextSubscriptionDate
		d.NextSubscriptionDate = &t
	}
}
