package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddMonthClamped(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "same day next month",
			in:   time.Date(2025, 3, 15, 8, 30, 0, 0, time.UTC),
			want: time.Date(2025, 4, 15, 8, 30, 0, 0, time.UTC),
		},
		{
			name: "jan 31 to feb 28",
			in:   time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC),
			want: time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "jan 31 to feb 29 in leap year",
			in:   time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC),
			want: time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "march 31 to april 30",
			in:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "december rolls the year",
			in:   time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
			want: time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(AddMonthClamped(tt.in)), "got %s", AddMonthClamped(tt.in))
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(2024, time.February, time.UTC))
	assert.Equal(t, 28, DaysInMonth(2100, time.February, time.UTC))
	assert.Equal(t, 31, DaysInMonth(2025, time.December, time.UTC))
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("03123456"))
	assert.False(t, ValidatePhone(""))
	assert.False(t, ValidatePhone("+9613123456"))
	assert.False(t, ValidatePhone("03 123 456"))
	assert.Equal(t, "03123456", NormalizePhone(" 03-123 456 "))
	assert.Equal(t, "0312", NormalizePhone("(03)12"))
}
