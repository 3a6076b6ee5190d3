package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubscriptionStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    SubscriptionStatus
		wantErr bool
	}{
		{"", SubscriptionInactive, false},
		{"active", SubscriptionActive, false},
		{"ACTIVE", SubscriptionActive, false},
		{" Inactive ", SubscriptionInactive, false},
		{"paused", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSubscriptionStatus(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSubscriptionStatusIsActive(t *testing.T) {
	assert.True(t, SubscriptionActive.IsActive())
	assert.True(t, SubscriptionStatus("Active").IsActive())
	assert.False(t, SubscriptionInactive.IsActive())
	assert.False(t, SubscriptionStatus("").IsActive())
}

func TestDriverUpdateApply(t *testing.T) {
	date := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	d := Driver{Name: "Old", PhoneNumber: "0311", SubscriptionStatus: SubscriptionInactive, NextSubscriptionDate: &date}

	name := "New"
	DriverUpdate{Name: &name}.Apply(&d)
	assert.Equal(t, "New", d.Name)
	assert.Equal(t, "0311", d.PhoneNumber)
	require.NotNil(t, d.NextSubscriptionDate)

	DriverUpdate{ClearNextSubscriptionDate: true}.Apply(&d)
	assert.Nil(t, d.NextSubscriptionDate)

	assert.True(t, DriverUpdate{}.IsEmpty())
	assert.False(t, DriverUpdate{Name: &name}.IsEmpty())
}

func TestFlexTimeUnmarshal(t *testing.T) {
	var in struct {
		A FlexTime `json:"a"`
		B FlexTime `json:"b"`
		C FlexTime `json:"c"`
		D FlexTime `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a":"2025-01-31T10:00:00.000Z","b":null,"c":"2025-02-01"}`), &in)
	require.NoError(t, err)

	assert.True(t, in.A.Set)
	assert.True(t, in.A.Valid)
	assert.Equal(t, time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC), in.A.Time)

	assert.True(t, in.B.Set)
	assert.False(t, in.B.Valid)
	assert.Nil(t, in.B.Ptr())

	require.NotNil(t, in.C.Ptr())
	assert.Equal(t, 1, in.C.Time.Day())

	assert.False(t, in.D.Set)
}

func TestFlexTimeRejectsGarbage(t *testing.T) {
	var in struct {
		A FlexTime `json:"a"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"a":"next tuesday"}`), &in))
	assert.Error(t, json.Unmarshal([]byte(`{"a":12}`), &in))
}
