package tree

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodocs/pkg/docid"
	"github.com/marmos91/dittodocs/pkg/store"
)

func flatStore(t *testing.T, n int) (*Store, []string) {
	t.Helper()
	s := newStore(t)
	var names []string
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("file%02d.txt", i)
		writeFile(t, s, name, strings.Repeat("x", i))
		names = append(names, name)
	}
	return s, names
}

func TestFindByID(t *testing.T) {
	s := newStore(t)
	writeFile(t, s, "a/b.txt", "b")
	ctx := context.Background()

	docs, err := s.Find(ctx, store.Query{Filter: map[string]any{"id": pathID(t, "a/b.txt").String()}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a/b.txt", docs[0].ID.Path())

	tests := []struct {
		name string
		id   any
	}{
		{name: "missing", id: pathID(t, "a/missing.txt")},
		{name: "malformed token", id: "noexisted"},
		{name: "unsafe token", id: "YXxi"}, // "a|b"
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Find(ctx, store.Query{Filter: map[string]any{"id": tt.id}})
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestFindByIDAppliesRemainingFilters(t *testing.T) {
	s := newStore(t)
	writeFile(t, s, "a/b.txt", "b")
	ctx := context.Background()
	target := pathID(t, "a/b.txt")

	docs, err := s.Find(ctx, store.Query{Filter: map[string]any{"id": target, "parent_id": pathID(t, "a")}})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = s.Find(ctx, store.Query{Filter: map[string]any{"id": target, "parent_id": docid.Root}})
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = s.Find(ctx, store.Query{Filter: map[string]any{"id": target}, Skip: 1})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFindShallowListing(t *testing.T) {
	s := newStore(t)
	writeFile(t, s, "top.txt", "t")
	writeFile(t, s, "dir/one.txt", "1")
	writeFile(t, s, "dir/two.txt", "2")
	writeFile(t, s, "dir/sub/deep.txt", "d")
	ctx := context.Background()

	docs, err := s.Find(ctx, store.Query{Filter: map[string]any{"parent_id": pathID(t, "dir")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/one.txt", "dir/sub", "dir/two.txt"}, paths(docs))
	for _, doc := range docs {
		assert.Equal(t, pathID(t, "dir"), doc.ParentID)
	}

	docs, err = s.Find(ctx, store.Query{Filter: map[string]any{"parent_id": ""}})
	require.NoError(t, err)
	assert.Equal(t, []string{"dir", "top.txt"}, paths(docs), "explicit root parent is shallow")
}

func TestFindMissingOrFileParent(t *testing.T) {
	s := newStore(t)
	writeFile(t, s, "note.txt", "x")
	ctx := context.Background()

	for _, parent := range []string{"nowhere", "note.txt"} {
		docs, err := s.Find(ctx, store.Query{Filter: map[string]any{"parent_id": pathID(t, parent)}})
		require.NoError(t, err)
		assert.Empty(t, docs, parent)

		n, err := s.Count(ctx, store.Query{Filter: map[string]any{"parent_id": pathID(t, parent)}})
		require.NoError(t, err)
		assert.Zero(t, n)
	}
}

func TestFindEqualityFilters(t *testing.T) {
	s := newStore(t)
	writeFile(t, s, "a.txt", "12345")
	writeFile(t, s, "b.json", "{}")
	writeFile(t, s, "c.txt", "1")
	parent := map[string]any{"parent_id": docid.Root}
	ctx := context.Background()

	with := func(key string, value any) store.Query {
		filter := map[string]any{key: value}
		for k, v := range parent {
			filter[k] = v
		}
		return store.Query{Filter: filter}
	}

	tests := []struct {
		name  string
		query store.Query
		want  []string
	}{
		{name: "mime", query: with("mime", "text/plain"), want: []string{"a.txt", "c.txt"}},
		{name: "name", query: with("name", "b.json"), want: []string{"b.json"}},
		{name: "size int", query: with("size", 5), want: []string{"a.txt"}},
		{name: "size float", query: with("size", float64(2)), want: []string{"b.json"}},
		{name: "size string", query: with("size", "1"), want: []string{"c.txt"}},
		{name: "size fraction", query: with("size", 1.5), want: []string{}},
		{name: "unknown field", query: with("color", "red"), want: []string{}},
		{name: "wrong type", query: with("name", 42), want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Find(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, paths(docs))
		})
	}
}

func TestFindByUpdatedAt(t *testing.T) {
	s := newStore(t)
	writeFile(t, s, "a.txt", "a")
	ctx := context.Background()

	doc, err := s.Get(ctx, pathID(t, "a.txt"))
	require.NoError(t, err)

	docs, err := s.Find(ctx, store.Query{Filter: map[string]any{"updated_at": doc.UpdatedAt}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, paths(docs))

	docs, err = s.Find(ctx, store.Query{Filter: map[string]any{"updated_at": doc.UpdatedAt.Format("2006-01-02T15:04:05.999999999Z07:00")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, paths(docs))
}

func TestPaginationInvariant(t *testing.T) {
	const n = 7
	s, names := flatStore(t, n)
	ctx := context.Background()

	for skip := 0; skip <= n+1; skip++ {
		for limit := 0; limit <= n+1; limit++ {
			docs, err := s.Find(ctx, store.Query{Skip: skip, Limit: store.Limit(limit)})
			require.NoError(t, err)

			want := max(0, min(limit, n-skip))
			require.Len(t, docs, want, "skip=%d limit=%d", skip, limit)
			if want > 0 {
				assert.Equal(t, names[skip:skip+want], paths(docs))
			}
		}
	}

	var rebuilt []string
	for k := 1; k <= n; k++ {
		window, err := s.Find(ctx, store.Query{Skip: k - 1, Limit: store.Limit(1)})
		require.NoError(t, err)
		rebuilt = append(rebuilt, paths(window)...)

		prefix, err := s.Find(ctx, store.Query{Limit: store.Limit(k)})
		require.NoError(t, err)
		assert.Equal(t, names[:k], paths(prefix))
	}
	assert.Equal(t, names, rebuilt)
}

func TestPaginationDefaults(t *testing.T) {
	s, names := flatStore(t, 4)
	ctx := context.Background()

	docs, err := s.Find(ctx, store.Query{Skip: -3, Limit: store.Limit(-1)})
	require.NoError(t, err)
	assert.Equal(t, names, paths(docs), "negative skip and limit are ignored")

	docs, err = s.Find(ctx, store.Query{Skip: 2})
	require.NoError(t, err)
	assert.Equal(t, names[2:], paths(docs))
}

func TestDeepCountAndOrder(t *testing.T) {
	s := newStore(t)
	want := buildTree(t, s)
	ctx := context.Background()

	n, err := s.Count(ctx, store.Query{})
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	docs, err := s.Find(ctx, store.Query{})
	require.NoError(t, err)
	assert.Equal(t, want, paths(docs), "deep walk is breadth-first in name order")

	n, err = s.Count(ctx, store.Query{Skip: 10, Limit: store.Limit(2)})
	require.NoError(t, err)
	assert.Equal(t, 42, n, "count ignores the window")
}

func TestDeepWindow(t *testing.T) {
	s := newStore(t)
	all := buildTree(t, s)
	ctx := context.Background()

	tests := []struct{ skip, limit int }{
		{0, 1}, {0, 6}, {2, 5}, {5, 3}, {10, 10}, {40, 10}, {42, 1}, {7, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("skip=%d,limit=%d", tt.skip, tt.limit), func(t *testing.T) {
			docs, err := s.Find(ctx, store.Query{Skip: tt.skip, Limit: store.Limit(tt.limit)})
			require.NoError(t, err)

			start := min(tt.skip, len(all))
			end := min(tt.skip+tt.limit, len(all))
			assert.Equal(t, all[start:end], paths(docs))
		})
	}
}

func TestDeepFiltersPruneDescent(t *testing.T) {
	s := newStore(t)
	buildTree(t, s)
	ctx := context.Background()

	docs, err := s.Find(ctx, store.Query{Filter: map[string]any{"mime": "text/plain"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"f0.txt", "f1.txt", "f2.txt"}, paths(docs),
		"non-matching directories are not descended")

	docs, err = s.Find(ctx, store.Query{Filter: map[string]any{"mime": store.DirectoryMime}})
	require.NoError(t, err)
	assert.Len(t, docs, 12, "matching directories are descended")
}

func TestDeepSortIsPerLevel(t *testing.T) {
	s := newStore(t)
	buildTree(t, s)
	ctx := context.Background()

	docs, err := s.Find(ctx, store.Query{Sort: []store.SortField{{Field: "name", Order: store.Descending}}})
	require.NoError(t, err)
	require.Len(t, docs, 42)

	got := paths(docs)
	assert.Equal(t, []string{"f2.txt", "f1.txt", "f0.txt", "d2", "d1", "d0"}, got[:6])
	assert.Equal(t, []string{"d2/s2", "d2/s1", "d2/s0", "d1/s2"}, got[6:10],
		"subtrees follow in discovery order, each sorted on its own")

	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.Name
	}
	assert.False(t, slices.IsSortedFunc(names, func(a, b string) int { return strings.Compare(b, a) }),
		"overall order is not a global sort")
}

func TestCompositeSort(t *testing.T) {
	s := newStore(t)
	writeFile(t, s, "b.txt", "22")
	writeFile(t, s, "a.txt", "1")
	writeFile(t, s, "c.json", "1")
	writeFile(t, s, "d.json", "333")
	mkdir(t, s, "z")
	ctx := context.Background()

	docs, err := s.Find(ctx, store.Query{
		Filter: map[string]any{"parent_id": docid.Root},
		Sort: []store.SortField{
			{Field: "mime", Order: store.Ascending},
			{Field: "size", Order: store.Descending},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d.json", "c.json", "z", "b.txt", "a.txt"}, paths(docs))

	docs, err = s.Find(ctx, store.Query{
		Filter: map[string]any{"parent_id": docid.Root},
		Sort:   []store.SortField{{Field: "unknown", Order: store.Descending}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.json", "d.json", "z"}, paths(docs),
		"unknown sort fields keep listing order")
}

func TestListEnvelope(t *testing.T) {
	s, names := flatStore(t, 5)
	ctx := context.Background()

	result, err := s.List(ctx, store.Query{Skip: 1, Limit: store.Limit(2)})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 1, result.Skip)
	assert.Equal(t, 2, result.Limit)
	assert.Equal(t, names[1:3], paths(result.Data))

	result, err = s.List(ctx, store.Query{})
	require.NoError(t, err)
	assert.Equal(t, -1, result.Limit)
	assert.Len(t, result.Data, 5)
}

func TestFindHonorsCancelledContext(t *testing.T) {
	s := newStore(t)
	buildTree(t, s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Find(ctx, store.Query{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindSkipsUnsafeEntryNames(t *testing.T) {
	s := newStore(t)
	writeFile(t, s, "ok.txt", "x")
	writeFile(t, s, "bad?.txt", "x")

	docs, err := s.Find(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.txt"}, paths(docs))
}
