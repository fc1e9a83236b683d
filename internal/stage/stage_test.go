package stage_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/birkland/assetresolv"
	"github.com/birkland/assetresolv/bridge"
	"github.com/birkland/assetresolv/drivers/bal"
	"github.com/birkland/assetresolv/drivers/fs"
	"github.com/birkland/assetresolv/internal/diag"
	"github.com/birkland/assetresolv/internal/stage"
	"github.com/birkland/assetresolv/resolv"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBridge(t *testing.T, opts ...bridge.Option) *bridge.Bridge {
	backend, err := bal.Open(filepath.Join("testdata", "bal_library.json"))
	require.NoError(t, err)
	return bridge.New(backend, opts...)
}

func abs(t *testing.T, path string) string {
	p, err := filepath.Abs(path)
	require.NoError(t, err)
	return p
}

func TestOpenEmitsCallbackSequence(t *testing.T) {
	var buf bytes.Buffer
	b := newBridge(t, bridge.WithEmitter(diag.New(&buf, diag.Options{Verbose: true, NoColor: true})))

	s, err := stage.Open(context.Background(), b, "testdata/empty_shot.usda", nil)
	require.NoError(t, err)
	require.NotNil(t, s.Prim("/Shot"))

	out := buf.String()
	for _, op := range []string{
		"_CreateIdentifier",
		"_Resolve",
		"_GetExtension",
		"_GetAssetInfo",
		"_OpenAsset",
		"_GetModificationTimestamp",
	} {
		assert.Contains(t, out, op)
	}
}

func TestComposition(t *testing.T) {
	s, err := stage.Open(context.Background(), newBridge(t), "testdata/shots/parking_lot.usda", nil)
	require.NoError(t, err)

	attrs := map[string]map[string]string{
		"/World/Floor":         {"size": "(20, 0.1, 40)"},
		"/World/Floor/Car1":    {"color": "(1, 0, 0)", "wheels": "4"},
		"/World/Floor/Car2":    {"color": "(0, 0, 1)", "wheels": "4"},
		"/World/Asset/Car1":    {"color": "(1, 0, 0)", "wheels": "4"},
		"/World/Asset/Car2":    {"color": "(0, 0, 1)", "wheels": "4"},
		"/World/Assetized/Car": {"color": "(0, 0, 1)", "wheels": "4"},
	}
	for path, expected := range attrs {
		p := s.Prim(path)
		if !assert.NotNil(t, p, path) {
			continue
		}
		assert.Equal(t, expected, p.Attributes, path)
	}

	assert.Equal(t, "Xform", s.Prim("/World/Asset").Type)
	assert.Empty(t, s.Prim("/World/Missing").Children)

	require.Len(t, s.Errors, 1)
	e := s.Errors[0]
	assert.Equal(t, "/World/Missing", e.Prim)
	assert.Equal(t, "bal:///not_a_file", e.Reference)
	assert.True(t, assetresolv.IsKind(e.Err, assetresolv.KindResolution))

	var ids []string
	for _, l := range s.Layers {
		ids = append(ids, l.Identifier)
	}
	assert.Contains(t, ids, "bal:///floor")
	assert.Contains(t, ids, "bal:///car")
	assert.Contains(t, ids, abs(t, "testdata/props/floor.usda"))
}

func TestEntityLayerInfo(t *testing.T) {
	s, err := stage.Open(context.Background(), newBridge(t), "bal:///floor", nil)
	require.NoError(t, err)

	assert.Equal(t, "bal:///floor", s.Root.Identifier)
	assert.Equal(t, abs(t, "testdata/props/floor.usda"), s.Root.Location)
	assert.Equal(t, "bal:///floor", s.Root.Info[assetresolv.InfoEntityReference])
	assert.False(t, s.Root.ModTime.IsZero())
	assert.NotNil(t, s.Prim("/Floor/Car2"))
}

func TestSearchPath(t *testing.T) {
	ctx := context.Background()
	cxt := resolv.NewCxt(abs(t, "testdata/shots"))

	s, err := stage.Open(ctx, newBridge(t), "parking_lot.usda", cxt)
	require.NoError(t, err)
	assert.Equal(t, abs(t, "testdata/shots/parking_lot.usda"), s.Root.Location)

	direct, err := stage.Open(ctx, newBridge(t), "testdata/shots/parking_lot.usda", nil)
	require.NoError(t, err)

	for _, path := range []string{"/World/Floor/Car1", "/World/Floor/Car2", "/World/Asset/Car1", "/World/Asset/Car2"} {
		viaSearch, viaPath := s.Prim(path), direct.Prim(path)
		if assert.NotNil(t, viaSearch, path) && assert.NotNil(t, viaPath, path) {
			assert.Equal(t, viaPath.Attributes["color"], viaSearch.Attributes["color"], path)
		}
	}

	// Explicitly relative references never use search paths
	_, err = stage.Open(ctx, newBridge(t), "./parking_lot.usda", cxt)
	assert.Error(t, err)
}

func TestRootFailure(t *testing.T) {
	ctx := context.Background()
	for _, ref := range []string{"bal:///not_a_file", "bal:///", "testdata/nonexistent.usda", "testdata/bal_library.json"} {
		_, err := stage.Open(ctx, newBridge(t), ref, nil)
		assert.Error(t, err, ref)
	}
}

func TestCycle(t *testing.T) {
	s, err := stage.Open(context.Background(), fs.NewResolver(fs.Config{}), abs(t, "testdata/cycle/a.usda"), nil)
	require.NoError(t, err)

	require.Len(t, s.Errors, 1)
	assert.True(t, errors.Is(s.Errors[0], stage.ErrCycle))

	a := s.Prim("/A")
	require.NotNil(t, a)
	assert.Equal(t, "1", a.Attributes["depth"])
}

func TestCreateNew(t *testing.T) {
	ctx := context.Background()
	b := newBridge(t)
	target := filepath.Join(t.TempDir(), "layers", "new.usda")

	prim := &stage.Prim{
		Name:       "World",
		Type:       "Xform",
		Attributes: map[string]string{"size": "(1, 2, 3)"},
		References: []string{"bal:///car"},
		Children: []*stage.Prim{
			{Name: "Empty", Attributes: map[string]string{}},
		},
	}

	id, err := stage.CreateNew(ctx, b, target, prim)
	require.NoError(t, err)
	assert.Equal(t, target, id)

	s, err := stage.Open(ctx, b, target, nil)
	require.NoError(t, err)
	require.Empty(t, s.Errors)

	world := s.Prim("/World")
	require.NotNil(t, world)
	assert.Equal(t, "(1, 2, 3)", world.Attributes["size"])
	assert.Equal(t, "4", world.Attributes["wheels"])
	assert.NotNil(t, s.Prim("/World/Empty"))

	_, err = stage.CreateNew(ctx, b, "bal:///floor")
	assert.True(t, assetresolv.IsKind(err, assetresolv.KindWriteNotSupported))
}

func TestFormatRoundTrip(t *testing.T) {
	src := `#usda 1.0
(
    defaultPrim = "World"
)

def Xform "World" (
    references = [@a.usda@, @bal:///b@]
)
{
    custom size = (1, 2, 3)

    def "Child"
    {
        custom name = "x"
    }
}
`
	l, err := stage.Parse(strings.NewReader(src))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, stage.Format(&buf, l.DefaultPrim, l.Prims))
	assert.Equal(t, src, buf.String())
}
