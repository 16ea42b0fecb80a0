package depend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/segments/internal/core/depend"
)

type position struct{}
type velocity struct{}

var (
	pos = depend.TypeOf[position]()
	vel = depend.TypeOf[velocity]()
)

func TestReadersShare(t *testing.T) {
	c := depend.NewConflict()
	require.NoError(t, c.Detect([]depend.Dependency{depend.ReadAt(pos, 0)}))
	require.NoError(t, c.Detect([]depend.Dependency{depend.ReadAt(pos, 0), depend.ReadOf(vel)}))
}

func TestWriteConflicts(t *testing.T) {
	c := depend.NewConflict()
	require.NoError(t, c.Detect([]depend.Dependency{depend.WriteAt(pos, 1)}))

	err := c.Detect([]depend.Dependency{depend.WriteAt(pos, 1)})
	require.ErrorIs(t, err, depend.ErrConflict)
	var conflict *depend.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, depend.Write, conflict.Against)

	require.Error(t, c.Detect([]depend.Dependency{depend.ReadAt(pos, 1)}))
	require.NoError(t, c.Detect([]depend.Dependency{depend.WriteAt(pos, 2)}))
}

func TestGlobalScopeOverlapsSegments(t *testing.T) {
	c := depend.NewConflict()
	require.NoError(t, c.Detect([]depend.Dependency{depend.ReadAt(pos, 3)}))
	require.Error(t, c.Detect([]depend.Dependency{depend.WriteOf(pos)}))

	c.Clear()
	require.NoError(t, c.Detect([]depend.Dependency{depend.WriteOf(vel)}))
	require.Error(t, c.Detect([]depend.Dependency{depend.ReadAt(vel, 7)}))
}

func TestDeferOrdering(t *testing.T) {
	c := depend.NewConflict()
	require.NoError(t, c.Detect([]depend.Dependency{depend.ReadAt(pos, 0)}))
	require.NoError(t, c.Detect([]depend.Dependency{depend.DeferOf(pos)}))
	require.NoError(t, c.Detect([]depend.Dependency{depend.DeferOf(pos)}))

	err := c.Detect([]depend.Dependency{depend.ReadAt(pos, 0)})
	var conflict *depend.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, depend.Defer, conflict.Against)
}

func TestDetectRecordsNothingOnFailure(t *testing.T) {
	c := depend.NewConflict()
	require.NoError(t, c.Detect([]depend.Dependency{depend.WriteAt(pos, 0)}))
	require.Error(t, c.Detect([]depend.Dependency{depend.WriteOf(vel), depend.ReadAt(pos, 0)}))
	require.NoError(t, c.Detect([]depend.Dependency{depend.WriteOf(vel)}))
}

func TestUnknownConflictsWithEverything(t *testing.T) {
	c := depend.NewConflict()
	require.NoError(t, c.Detect([]depend.Dependency{depend.Any()}))
	require.Error(t, c.Detect([]depend.Dependency{depend.ReadOf(vel)}))

	c.Clear()
	require.NoError(t, c.Detect([]depend.Dependency{depend.ReadOf(vel)}))
	require.Error(t, c.Detect([]depend.Dependency{depend.Any()}))
}

func TestValidate(t *testing.T) {
	require.NoError(t, depend.Validate([]depend.Dependency{
		depend.DeferOf(pos), depend.WriteAt(pos, 0), depend.WriteAt(pos, 1), depend.Any(),
	}))
	require.ErrorIs(t, depend.Validate([]depend.Dependency{
		depend.WriteAt(pos, 0), depend.ReadOf(pos),
	}), depend.ErrConflict)
}

func TestDependencyString(t *testing.T) {
	assert.Equal(t, "write(depend_test.position@2)", depend.WriteAt(pos, 2).String())
	assert.Equal(t, "read(depend_test.velocity)", depend.ReadOf(vel).String())
	assert.Equal(t, "unknown", depend.Any().String())
}
