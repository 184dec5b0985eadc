package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/rankscrape/internal/model"
	"github.com/abelbrown/rankscrape/internal/normalize"
)

func item(title, channel string, views, subs int64) model.Item {
	return model.Item{
		Title:              title,
		Channel:            channel,
		ViewsNumeric:       views,
		SubscribersNumeric: subs,
		Hash:               normalize.Fingerprint(title, channel),
	}
}

func titles(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestMergeIsIdempotent(t *testing.T) {
	run := []model.Item{item("a", "x", 1, 1), item("b", "x", 2, 2), item("c", "y", 3, 3)}
	s := New()

	assert.Equal(t, 3, s.MergeRun(run))
	once := s.Results.Items()

	assert.Zero(t, s.MergeRun(run))
	assert.Zero(t, s.MergeRun(s.Results.Items()))
	assert.Equal(t, once, s.Results.Items())
}

func TestMergeDedupsAgainstEarlierRuns(t *testing.T) {
	s := New()
	s.MergeRun([]model.Item{item("Hello, World!", "Chan", 1, 1)})
	added := s.MergeRun([]model.Item{item("helloworld", "CHAN", 5, 5), item("new", "Chan", 1, 1)})

	assert.Equal(t, 1, added)
	assert.Equal(t, []string{"Hello, World!", "new"}, titles(s.Results.Items()))
}

func TestCollectionRemove(t *testing.T) {
	a, b, c := item("a", "x", 0, 0), item("b", "x", 0, 0), item("c", "x", 0, 0)
	col := NewCollection(a, b, c)

	assert.Equal(t, 1, col.Remove(b.Hash, "missing"))
	assert.Equal(t, []string{"a", "c"}, titles(col.Items()))
	assert.False(t, col.Contains(b.Hash))
	got, ok := col.Get(c.Hash)
	require.True(t, ok)
	assert.Equal(t, "c", got.Title)

	col.Clear()
	assert.Zero(t, col.Len())
}

func TestCartAndGroups(t *testing.T) {
	a, b := item("a", "x", 0, 0), item("b", "x", 0, 0)
	s := New()
	s.MergeRun([]model.Item{a, b})

	assert.Equal(t, 2, s.AddToCart([]string{a.Hash, b.Hash, "nope"}))
	assert.Zero(t, s.AddToCart([]string{a.Hash}))

	require.NoError(t, s.CreateGroup("  July week 1 ", s.Cart.Select([]string{a.Hash})))
	g, ok := s.Group("July week 1")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, titles(g.Items))

	assert.ErrorIs(t, s.CreateGroup("July week 1", s.Cart.Items()), ErrGroupExists)
	assert.ErrorIs(t, s.CreateGroup(" ", s.Cart.Items()), ErrGroupName)
	assert.ErrorIs(t, s.CreateGroup("empty", nil), ErrGroupEmpty)

	// Groups are snapshots; later cart edits do not reach them.
	s.Cart.Clear()
	g, _ = s.Group("July week 1")
	assert.Len(t, g.Items, 1)

	require.NoError(t, s.DeleteGroup("July week 1"))
	assert.ErrorIs(t, s.DeleteGroup("July week 1"), ErrGroupNotFound)
	assert.Empty(t, s.Groups())
}

func TestSorted(t *testing.T) {
	items := []model.Item{
		item("b1", "beta", 10, 5),
		item("a1", "alpha", 5, -1),
		item("b2", "beta", 30, 50),
		item("a2", "alpha", 50, 500),
	}

	assert.Equal(t, []string{"b1", "a1", "b2", "a2"}, titles(Sorted(items, SortDefault)))
	assert.Equal(t, []string{"a2", "a1", "b2", "b1"}, titles(Sorted(items, SortChannel)))
	assert.Equal(t, []string{"a2", "b2", "b1", "a1"}, titles(Sorted(items, SortViewsDesc)))
	assert.Equal(t, []string{"a1", "b1", "b2", "a2"}, titles(Sorted(items, SortViewsAsc)))
	assert.Equal(t, []string{"a2", "b2", "b1", "a1"}, titles(Sorted(items, SortSubsDesc)))
	assert.Equal(t, []string{"a1", "b1", "b2", "a2"}, titles(Sorted(items, SortSubsAsc)))

	// Input untouched.
	assert.Equal(t, "b1", items[0].Title)
}

func TestParseSort(t *testing.T) {
	for _, m := range SortModes() {
		got, err := ParseSort(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseSort("random")
	assert.Error(t, err)
	assert.Equal(t, SortDefault, SortSubsAsc.Next())
}
