package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/rankscrape/internal/model"
)

func TestLadderIsContiguous(t *testing.T) {
	var prev int64
	count := 0
	for _, c := range Categories() {
		for _, r := range c.Ranges {
			assert.Equal(t, prev, r.Min, "range %s must start where the previous ended", r.Name)
			prev = r.Max
			count++
		}
	}
	assert.Equal(t, 26, count)

	r, ok := Lookup("1.5M~2M")
	require.True(t, ok)
	assert.Equal(t, int64(1_500_000), r.Min)
	assert.Equal(t, int64(2_000_000), r.Max)

	top, ok := Lookup("10M+")
	require.True(t, ok)
	assert.True(t, top.Contains(9_000_000_000))
}

func TestIncludeNamedRange(t *testing.T) {
	cfg := NewConfig(true, []string{"1K~5K"}, false, -1, -1)

	assert.True(t, Include(3000, cfg))
	assert.True(t, Include(1000, cfg))
	assert.False(t, Include(5000, cfg), "ranges are half-open")
	assert.False(t, Include(999, cfg))
	assert.False(t, Include(-1, cfg))
}

func TestIncludeNotApplied(t *testing.T) {
	cfg := NewConfig(false, []string{"1K~5K"}, true, 10, 20)
	assert.True(t, Include(-1, cfg))
	assert.True(t, Include(999_999, cfg))
}

func TestIncludeAppliedWithoutCriteriaKeepsKnownCounts(t *testing.T) {
	cfg := NewConfig(true, nil, false, -1, -1)
	assert.True(t, Include(0, cfg))
	assert.True(t, Include(42, cfg))
	assert.False(t, Include(-1, cfg))
}

func TestIncludeCustomBounds(t *testing.T) {
	minOnly := NewConfig(true, nil, true, 12_000, -1)
	assert.True(t, Include(12_000, minOnly))
	assert.False(t, Include(11_999, minOnly))

	maxOnly := NewConfig(true, nil, true, -1, 55_000)
	assert.True(t, Include(55_000, maxOnly))
	assert.False(t, Include(55_001, maxOnly))

	both := NewConfig(true, nil, true, 12_000, 55_000)
	assert.True(t, Include(12_000, both))
	assert.True(t, Include(55_000, both))
	assert.False(t, Include(60_000, both))
}

func TestIncludeCustomEnabledButUnboundedExcludes(t *testing.T) {
	cfg := NewConfig(true, nil, true, -1, -1)
	assert.False(t, Include(500, cfg))
}

func TestIncludeRangeOrCustom(t *testing.T) {
	cfg := NewConfig(true, []string{"0~1K"}, true, 1_000_000, -1)
	assert.True(t, Include(10, cfg))
	assert.True(t, Include(2_000_000, cfg))
	assert.False(t, Include(5_000, cfg))
}

func TestNewConfigIgnoresUnknownRanges(t *testing.T) {
	cfg := NewConfig(true, []string{"bogus", "5K~10K", "5K~10K"}, false, 0, 0)
	assert.Equal(t, []string{"5K~10K"}, cfg.Ranges())
}

func TestSelectionSnapshotIsIndependent(t *testing.T) {
	sel := NewSelection()
	sel.Applied = true
	sel.Toggle("1K~5K")
	cfg := sel.Config()

	sel.Toggle("1K~5K")
	sel.Toggle("10M+")
	sel.Applied = false

	assert.True(t, cfg.Applied())
	assert.Equal(t, []string{"1K~5K"}, cfg.Ranges())
	assert.True(t, Include(3000, cfg))
}

func TestSelectionToggleCategory(t *testing.T) {
	sel := NewSelection()
	sel.ToggleCategory("100K~1M")
	assert.True(t, sel.Checked("100K~500K"))
	assert.True(t, sel.Checked("500K~1M"))

	sel.ToggleCategory("100K~1M")
	assert.False(t, sel.Checked("100K~500K"))
}

func TestSelectionSetCustom(t *testing.T) {
	sel := NewSelection()
	require.NoError(t, sel.SetCustom("12,000", ""))
	assert.Equal(t, int64(12_000), sel.CustomMin)
	assert.Equal(t, Unbounded, sel.CustomMax)

	assert.Error(t, sel.SetCustom("abc", ""))
	assert.Error(t, sel.SetCustom("", "-5"))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "off", NewConfig(false, nil, false, -1, -1).Describe())
	assert.Contains(t, NewConfig(true, []string{"0~1K"}, true, 5, -1).Describe(), "custom 5..*")
}

func TestBySubscribersAndDedup(t *testing.T) {
	items := []model.Item{
		{Hash: "a", SubscribersNumeric: 2000},
		{Hash: "b", SubscribersNumeric: 20},
		{Hash: "a", SubscribersNumeric: 2000},
		{Hash: "c", SubscribersNumeric: -1},
	}
	kept := BySubscribers(items, NewConfig(true, []string{"1K~5K"}, false, -1, -1))
	assert.Len(t, kept, 2)

	unique := Dedup(items)
	assert.Equal(t, []string{"a", "b", "c"}, model.Hashes(unique))
}
