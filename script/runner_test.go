package script

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/milk9111/stagecraft/prefabs"
	"github.com/milk9111/stagecraft/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) (*Runner, *project.Store, *bytes.Buffer) {
	t.Helper()
	catalog, err := prefabs.LoadCatalog()
	require.NoError(t, err)
	store := project.NewStore("scripter", project.NewProject("Script", 1024, 768, catalog))
	var buf bytes.Buffer
	return New(store, WithLogger(log.New(&buf, "", 0))), store, &buf
}

func TestRunBundledRow(t *testing.T) {
	r, store, logs := newTestRunner(t)

	res, err := r.RunFile(context.Background(), "row.tengo", map[string]string{"count": "3", "prefab": "crate"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Placed)
	assert.Equal(t, []string{"row: placed 3 crate"}, res.Logs)
	assert.Contains(t, logs.String(), "script: row: placed 3 crate")

	p := store.Project()
	require.Len(t, p.Entities, 3)
	for i, e := range p.Entities {
		assert.Equal(t, "crate", e.PrefabID)
		assert.Equal(t, float64(256*(i+1)), e.X)
		assert.Equal(t, 384.0, e.Y)
	}
	assert.Equal(t, "scripter", p.LastUpdatedBy)
}

func TestPlaceUnknownPrefabIsErrorValue(t *testing.T) {
	r, store, _ := newTestRunner(t)

	res, err := r.RunFile(context.Background(), "row.tengo", map[string]string{"count": "2", "prefab": "ghost"})
	require.NoError(t, err)
	assert.Zero(t, res.Placed)
	require.Len(t, res.Logs, 2)
	assert.Contains(t, res.Logs[0], "prefab not found")
	assert.Empty(t, store.Project().Entities)
}

func TestMoveAndRemove(t *testing.T) {
	r, store, _ := newTestRunner(t)
	a, err := store.PlaceEntity("rock", 64, 64, project.DefaultPlacement())
	require.NoError(t, err)
	_, err = store.PlaceEntity("crate", 128, 128, project.DefaultPlacement())
	require.NoError(t, err)

	src := `
for e in project.entities {
	if e.prefabId == "rock" {
		move(e.id, 10, -4)
	}
}
res := remove("nope")
log(is_error(res))
`
	res, err := r.Run(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Moved)
	assert.Zero(t, res.Removed)
	assert.Equal(t, []string{"true"}, res.Logs)

	got, _, ok := store.Project().Entity(a.ID)
	require.True(t, ok)
	assert.Equal(t, 74.0, got.X)
	assert.Equal(t, 60.0, got.Y)

	res, err = r.RunFile(context.Background(), "clear_prefab.tengo", map[string]string{"prefab": "crate"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
	require.Len(t, store.Project().Entities, 1)
	assert.Equal(t, a.ID, store.Project().Entities[0].ID)
}

func TestScatterIsDeterministicForSeed(t *testing.T) {
	params := map[string]string{"count": "5", "seed": "42"}

	r1, s1, _ := newTestRunner(t)
	_, err := r1.RunFile(context.Background(), "scatter.tengo", params)
	require.NoError(t, err)
	r2, s2, _ := newTestRunner(t)
	_, err = r2.RunFile(context.Background(), "scatter.tengo", params)
	require.NoError(t, err)

	e1, e2 := s1.Project().Entities, s2.Project().Entities
	require.Len(t, e1, 5)
	require.Len(t, e2, 5)
	for i := range e1 {
		assert.Equal(t, e1[i].X, e2[i].X)
		assert.Equal(t, e1[i].Y, e2[i].Y)
		assert.GreaterOrEqual(t, e1[i].X, 32.0)
		assert.LessOrEqual(t, e1[i].X, 1024.0-32)
	}
}

func TestRunErrors(t *testing.T) {
	r, store, _ := newTestRunner(t)

	_, err := r.Run(context.Background(), []byte(`x := `), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script: compile")

	res, err := r.Run(context.Background(), []byte(`
place("crate", 10, 10)
x := 1 / int(params.zero)
`), map[string]string{"zero": "0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script: run")
	assert.Equal(t, 1, res.Placed, "mutations before the failure are kept")
	assert.Len(t, store.Project().Entities, 1)

	_, err = r.Run(context.Background(), []byte(`place("crate")`), nil)
	assert.Error(t, err)

	_, err = r.Run(context.Background(), []byte(`os := import("os")`), nil)
	assert.Error(t, err)

	_, err = r.RunFile(context.Background(), "does-not-exist.tengo", nil)
	assert.Error(t, err)
}

func TestRunHonoursContext(t *testing.T) {
	r, _, _ := newTestRunner(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, []byte(`for { }`), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProjectGlobalIsReadOnly(t *testing.T) {
	r, _, _ := newTestRunner(t)
	_, err := r.Run(context.Background(), []byte(`project.name = "hacked"`), nil)
	assert.Error(t, err)

	res, err := r.Run(context.Background(), []byte(`log(project.name, len(project.prefabs), project.snapSize)`), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Script 8 32"}, res.Logs)
}
