package provider

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adhealth/clinic-scheduling/internal/schedule"
)

func TestWorksOn(t *testing.T) {
	p := &Provider{
		Name:         "Dr. Sarah Johnson",
		Availability: []schedule.Weekday{schedule.Monday, schedule.Wednesday, schedule.Friday},
	}

	monday := schedule.Date{Year: 2024, Month: time.June, Day: 3}
	tuesday := schedule.Date{Year: 2024, Month: time.June, Day: 4}
	friday := schedule.Date{Year: 2024, Month: time.June, Day: 7}

	assert.True(t, p.WorksOn(monday))
	assert.False(t, p.WorksOn(tuesday))
	assert.True(t, p.WorksOn(friday))
}

func TestWorksOnEmptyAvailability(t *testing.T) {
	p := &Provider{Name: "Dr. Nobody"}
	assert.False(t, p.WorksOn(schedule.Date{Year: 2024, Month: time.June, Day: 3}))
}

func TestMemoryDirectoryLookup(t *testing.T) {
	ctx := context.Background()
	p := Provider{ID: uuid.New(), Name: "Dr. Michael Chen"}
	dir := NewMemoryDirectory(p)

	got, err := dir.GetProvider(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Michael Chen", got.Name)

	_, err = dir.GetProvider(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrProviderNotFound)

	all, err := dir.ListProviders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
