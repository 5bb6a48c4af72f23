package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/builtingen/internal/ir"
	"github.com/roach88/builtingen/internal/testutil"
)

func TestSaveSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, "import-1")

	snap := testutil.Snapshot(testutil.SixCategories()...)
	imp, inserted, err := s.SaveSnapshot(ctx, snap, "specs/")
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "import-1", imp.ID)
	assert.Equal(t, int64(1), imp.Seq)
	assert.Equal(t, snap.MustFingerprint(), imp.Fingerprint)
	assert.Equal(t, "specs/", imp.Source)
	assert.Equal(t, ir.SnapshotVersion, imp.SnapshotVersion)
	assert.Equal(t, ir.GeneratorVersion, imp.GeneratorVersion)
	assert.Equal(t, 6, imp.BuiltinCount)

	got, err := s.LoadSnapshot(ctx, "import-1")
	require.NoError(t, err)
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, imp.Fingerprint, got.MustFingerprint())
}

func TestSaveSnapshot_PreservesIDOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, "import-1")

	snap := testutil.Snapshot(
		testutil.Generic(10, "b", "v", "n"),
		testutil.Generic(20, "a", "v", "n"),
		testutil.Generic(30, "c", "v", "n"),
	)
	_, _, err := s.SaveSnapshot(ctx, snap, "test")
	require.NoError(t, err)

	got, err := s.LoadSnapshot(ctx, "import-1")
	require.NoError(t, err)

	var ids []int64
	var names []string
	for _, b := range got.Builtins {
		ids = append(ids, b.Record.ID)
		names = append(names, b.Record.Name)
	}
	assert.Equal(t, []int64{10, 20, 30}, ids)
	assert.Equal(t, []string{"b", "a", "c"}, names)
}

func TestSaveSnapshot_IdempotentByFingerprint(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, "import-1", "import-2")

	snap := testutil.Snapshot(testutil.SixCategories()...)
	first, inserted, err := s.SaveSnapshot(ctx, snap, "a")
	require.NoError(t, err)
	require.True(t, inserted)

	again, inserted, err := s.SaveSnapshot(ctx, snap, "b")
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.Seq, again.Seq)
	assert.Equal(t, "a", again.Source)
	assert.Greater(t, again.Generation, first.Generation)

	imports, err := s.Imports(ctx)
	require.NoError(t, err)
	assert.Len(t, imports, 1)
}

func TestLoadLatest(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, "import-1", "import-2")

	_, _, err := s.LoadLatest(ctx)
	assert.ErrorIs(t, err, ErrNoImports)

	older := testutil.Snapshot(testutil.Generic(1, "__builtin_foo", "i.", "n"))
	newer := testutil.Snapshot(testutil.SixCategories()...)
	_, _, err = s.SaveSnapshot(ctx, older, "v1")
	require.NoError(t, err)
	_, _, err = s.SaveSnapshot(ctx, newer, "v2")
	require.NoError(t, err)

	snap, imp, err := s.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "import-2", imp.ID)
	assert.Equal(t, int64(2), imp.Seq)
	assert.Len(t, snap.Builtins, 6)

	imports, err := s.Imports(ctx)
	require.NoError(t, err)
	require.Len(t, imports, 2)
	assert.Equal(t, "import-1", imports[0].ID)
	assert.Equal(t, "import-2", imports[1].ID)
}

func TestLoadLatest_ReimportBecomesLatest(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, "import-a", "import-b", "unused")

	a := testutil.Snapshot(testutil.Generic(1, "a", "i.", "n"))
	b := testutil.Snapshot(testutil.Generic(1, "b", "i.", "n"))
	for _, snap := range []*ir.Snapshot{a, b} {
		_, inserted, err := s.SaveSnapshot(ctx, snap, "specs")
		require.NoError(t, err)
		require.True(t, inserted)
	}

	imp, inserted, err := s.SaveSnapshot(ctx, a, "specs")
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, "import-a", imp.ID)

	snap, latest, err := s.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "import-a", latest.ID)
	assert.Equal(t, imp.Generation, latest.Generation)
	require.Len(t, snap.Builtins, 1)
	assert.Equal(t, "a", snap.Builtins[0].Record.Name)

	imports, err := s.Imports(ctx)
	require.NoError(t, err)
	assert.Len(t, imports, 2)
}

func TestImports_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	imports, err := s.Imports(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, imports)
	assert.Empty(t, imports)
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LoadSnapshot(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrImportNotFound))
}

func TestLoadSnapshot_DetectsTampering(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, "import-1")

	_, _, err := s.SaveSnapshot(ctx, testutil.Snapshot(testutil.SixCategories()...), "test")
	require.NoError(t, err)

	_, err = s.DB().Exec(`UPDATE builtins SET attributes = 'nc' WHERE name = 'abs'`)
	require.NoError(t, err)

	_, err = s.LoadSnapshot(ctx, "import-1")
	assert.ErrorIs(t, err, ErrFingerprintMismatch)
}

func TestSaveSnapshot_Nil(t *testing.T) {
	s := createTestStore(t)

	_, _, err := s.SaveSnapshot(context.Background(), nil, "test")
	assert.Error(t, err)
}

func TestSaveSnapshot_DuplicateIDRollsBack(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, "import-1")

	snap := testutil.Snapshot(
		testutil.Generic(1, "a", "v", "n"),
		testutil.Generic(1, "b", "v", "n"),
	)
	_, _, err := s.SaveSnapshot(ctx, snap, "test")
	require.Error(t, err)

	imports, err := s.Imports(ctx)
	require.NoError(t, err)
	assert.Empty(t, imports, "failed import must not leave a partial batch")
}

func TestSaveSnapshot_Logs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := createTestStore(t, "import-1")
	s.logger = zap.New(core)

	_, _, err := s.SaveSnapshot(context.Background(), testutil.Snapshot(testutil.SixCategories()...), "test")
	require.NoError(t, err)

	entries := logs.FilterMessage("stored snapshot").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "import-1", entries[0].ContextMap()["import_id"])
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
