package db

import (
	"testing"
	"time"

	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCacheInvalidateFamily(t *testing.T) {
	c, err := NewCache()
	require.NoError(t, err)
	defer c.Close()

	fam, other := uuid.New(), uuid.New()
	require.True(t, c.SetReport(fam, 3, c.Generation(fam), &models.InsightReport{FamilyID: fam, WindowMonths: 3}))
	require.True(t, c.SetReport(fam, 6, c.Generation(fam), &models.InsightReport{FamilyID: fam, WindowMonths: 6}))
	require.True(t, c.SetReport(other, 3, c.Generation(other), &models.InsightReport{FamilyID: other, WindowMonths: 3}))
	c.Wait()

	got, ok := c.GetReport(fam, 6)
	require.True(t, ok)
	assert.Equal(t, 6, got.WindowMonths)

	c.InvalidateFamily(fam)

	_, ok = c.GetReport(fam, 3)
	assert.False(t, ok)
	_, ok = c.GetReport(fam, 6)
	assert.False(t, ok)
	_, ok = c.GetReport(other, 3)
	assert.True(t, ok)
}

func TestCacheGenericValues(t *testing.T) {
	c, err := NewCache()
	require.NoError(t, err)
	defer c.Close()

	c.Set("jwk:abc", "key", time.Minute)
	c.Wait()

	v, ok := c.Get("jwk:abc")
	require.True(t, ok)
	assert.Equal(t, "key", v)

}

func TestReportCacheRejectsReportFromBeforeInvalidation(t *testing.T) {
	c, err := NewCache()
	require.NoError(t, err)
	defer c.Close()

	fam, other := uuid.New(), uuid.New()
	gen := c.Generation(fam)
	otherGen := c.Generation(other)

	// An import lands while the report is being computed.
	c.InvalidateFamily(fam)
	assert.NotEqual(t, gen, c.Generation(fam))

	assert.False(t, c.SetReport(fam, 3, gen, &models.InsightReport{FamilyID: fam}))
	assert.True(t, c.SetReport(other, 3, otherGen, &models.InsightReport{FamilyID: other}))
	c.Wait()

	_, ok := c.GetReport(fam, 3)
	assert.False(t, ok)
	_, ok = c.GetReport(other, 3)
	assert.True(t, ok)

	assert.True(t, c.SetReport(fam, 3, c.Generation(fam), &models.InsightReport{FamilyID: fam}))
	c.Wait()
	_, ok = c.GetReport(fam, 3)
	assert.True(t, ok)
}
