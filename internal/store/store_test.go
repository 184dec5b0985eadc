package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/rankscrape/internal/model"
	"github.com/abelbrown/rankscrape/internal/normalize"
	"github.com/abelbrown/rankscrape/internal/session"
	"github.com/abelbrown/rankscrape/internal/target"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sample(title string, day time.Time) model.Item {
	return model.Item{
		Thumbnail:          "https://i.ytimg.com/vi/abcdefghij/mq.jpg",
		Title:              title,
		Views:              "1.5K",
		ViewsNumeric:       1500,
		Channel:            "Chan",
		Date:               day,
		Subscribers:        normalize.NoData,
		SubscribersNumeric: -1,
		Hash:               normalize.Fingerprint(title, "Chan"),
		VideoID:            "abcdefghij",
		URL:                normalize.WatchURL("abcdefghij"),
	}
}

func TestOpenCreatesTables(t *testing.T) {
	st := openMem(t)
	for _, table := range []string{"items", "collections"} {
		var name string
		err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestMemoryStoresAreIsolated(t *testing.T) {
	a, b := openMem(t), openMem(t)
	require.NoError(t, a.Replace(Results, []model.Item{sample("only in a", time.Time{})}, time.Time{}))

	got, err := b.Load(Results)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReplaceAndLoadRoundTrip(t *testing.T) {
	st := openMem(t)
	day := target.Day(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	items := []model.Item{sample("b", day), sample("a", time.Time{}), sample("c", day)}

	require.NoError(t, st.Replace(Results, items, time.Time{}))
	got, err := st.Load(Results)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []string{"b", "a", "c"}, []string{got[0].Title, got[1].Title, got[2].Title})
	assert.True(t, got[0].Date.Equal(day))
	assert.Equal(t, "2024-01-02", got[0].Day())
	assert.True(t, got[1].Date.IsZero())
	assert.Equal(t, items[0].URL, got[0].URL)
	assert.EqualValues(t, -1, got[0].SubscribersNumeric)

	// Replacing shrinks the collection.
	require.NoError(t, st.Replace(Results, items[:1], time.Time{}))
	got, err = st.Load(Results)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDeleteAndNames(t *testing.T) {
	st := openMem(t)
	require.NoError(t, st.Replace(Results, nil, time.Unix(1, 0)))
	require.NoError(t, st.Replace(Cart, nil, time.Unix(2, 0)))

	names, err := st.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{Results, Cart}, names)

	require.NoError(t, st.Delete(Cart))
	names, err = st.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{Results}, names)
}

func TestSessionRoundTrip(t *testing.T) {
	st := openMem(t)
	day := target.Day(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	sess := session.New()
	a, b := sample("a", day), sample("b", day)
	sess.MergeRun([]model.Item{a, b})
	sess.AddToCart([]string{b.Hash})
	require.NoError(t, sess.CreateGroup("week 1", sess.Cart.Items()))
	require.NoError(t, sess.CreateGroup("week 2", sess.Results.Items()))
	require.NoError(t, st.SaveSession(sess))

	loaded, err := st.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, model.Hashes(sess.Results.Items()), model.Hashes(loaded.Results.Items()))
	assert.Equal(t, model.Hashes(sess.Cart.Items()), model.Hashes(loaded.Cart.Items()))
	require.Len(t, loaded.Groups(), 2)
	assert.Equal(t, "week 1", loaded.Groups()[0].Name)
	assert.Len(t, loaded.Groups()[1].Items, 2)

	// Deleted groups disappear on the next save.
	require.NoError(t, sess.DeleteGroup("week 1"))
	require.NoError(t, st.SaveSession(sess))
	loaded, err = st.LoadSession()
	require.NoError(t, err)
	require.Len(t, loaded.Groups(), 1)
	assert.Equal(t, "week 2", loaded.Groups()[0].Name)
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	st, err := Open(path)
	require.NoError(t, err)
	sess := session.New()
	sess.MergeRun([]model.Item{sample("kept", time.Time{})})
	require.NoError(t, st.SaveSession(sess))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()
	loaded, err := st.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Results.Len())
}
