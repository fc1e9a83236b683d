package bal_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/birkland/assetresolv"
	"github.com/birkland/assetresolv/drivers/bal"
	"github.com/birkland/assetresolv/metadata"
	"github.com/go-test/deep"
)

func open(t *testing.T) *bal.Backend {
	b, err := bal.Open("testdata/bal_library.json")
	if err != nil {
		t.Fatalf("could not open library: %+v", err)
	}
	return b
}

func TestParseRef(t *testing.T) {
	cases := []struct {
		ref     string
		name    string
		version int
		code    assetresolv.ErrorCode
		fails   bool
	}{
		{"bal:///floor", "floor", 0, 0, false},
		{"BAL:///floor", "floor", 0, 0, false},
		{"bal:///floor?v=2", "floor", 2, 0, false},
		{"bal:///floor?v=latest", "floor", 0, 0, false},
		{"bal:///shots/parking%20lot", "shots/parking lot", 0, 0, false},
		{"bal:///", "", 0, assetresolv.CodeMalformedEntityReference, true},
		{"bal:///?v=1", "", 0, assetresolv.CodeMalformedEntityReference, true},
		{"bal://floor", "", 0, assetresolv.CodeMalformedEntityReference, true},
		{"bal:///floor?v=zero", "", 0, assetresolv.CodeMalformedEntityReference, true},
		{"bal:///floor?v=0", "", 0, assetresolv.CodeMalformedEntityReference, true},
		{"ams:///floor", "", 0, assetresolv.CodeInvalidEntityReference, true},
	}

	for _, c := range cases {
		c := c
		t.Run(c.ref, func(t *testing.T) {
			name, version, err := bal.ParseRef(c.ref)
			if c.fails {
				if err == nil {
					t.Fatalf("expected %s to fail", c.ref)
				}
				if err.Code != c.code {
					t.Errorf("expected %s, got %s", c.code, err.Code)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %s", err)
			}
			if name != c.name || version != c.version {
				t.Errorf("expected %s v%d, got %s v%d", c.name, c.version, name, version)
			}
		})
	}
}

func TestRef(t *testing.T) {
	if ref := bal.Ref("floor", 0); ref != "bal:///floor" {
		t.Errorf("wrong latest ref %s", ref)
	}
	if ref := bal.Ref("floor", 3); ref != "bal:///floor?v=3" {
		t.Errorf("wrong versioned ref %s", ref)
	}
}

func TestResolveBatch(t *testing.T) {
	b := open(t)
	dir, _ := filepath.Abs("testdata")

	refs := []string{
		"bal:///floor",
		"bal:///",
		"bal:///floor?v=1",
		"bal:///ceiling",
		"bal:///not_a_file",
		"bal:///shots/parking%20lot",
	}

	results, err := b.Resolve(context.Background(), refs)
	if err != nil {
		t.Fatalf("batch failed as a whole: %+v", err)
	}
	if len(results) != len(refs) {
		t.Fatalf("expected %d results, got %d", len(refs), len(results))
	}

	// Successes
	if loc := results[0].Entity.Location; loc != dir+"/floor_v2.usda" {
		t.Errorf("wrong latest location %s", loc)
	}
	if !results[0].Entity.ModTime.Equal(time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("wrong modification time %s", results[0].Entity.ModTime)
	}
	expectedInfo := assetresolv.Info{"artist": "jdoe", bal.InfoEntityName: "floor", bal.InfoVersion: "2"}
	if diffs := deep.Equal(expectedInfo, results[0].Entity.Info); len(diffs) != 0 {
		t.Errorf("wrong info: %s", diffs)
	}
	if loc := results[2].Entity.Location; loc != dir+"/floor_v1.usda" {
		t.Errorf("wrong v1 location %s", loc)
	}
	if loc := results[5].Entity.Location; loc != "file://"+filepath.ToSlash(dir)+"/parking_lot.usda" {
		t.Errorf("wrong url location %s", loc)
	}

	// Failures are isolated to their element
	for i, code := range map[int]assetresolv.ErrorCode{
		1: assetresolv.CodeMalformedEntityReference,
		3: assetresolv.CodeEntityResolutionError,
		4: assetresolv.CodeEntityResolutionError,
	} {
		if results[i].Err == nil || results[i].Err.Code != code {
			t.Errorf("expected %s for %s, got %v", code, refs[i], results[i].Err)
		}
	}
	for _, i := range []int{0, 2, 5} {
		if results[i].Err != nil {
			t.Errorf("unexpected error for %s: %s", refs[i], results[i].Err)
		}
	}
}

func TestCapabilities(t *testing.T) {
	b := open(t)
	ctx := context.Background()

	if ok, err := b.HasCapability(ctx, assetresolv.Resolution); !ok || err != nil {
		t.Errorf("library declares resolution")
	}
	if ok, _ := b.HasCapability(ctx, assetresolv.Publishing); ok {
		t.Errorf("library does not declare publishing")
	}

	memory := bal.New(metadata.NewLibrary())
	if ok, _ := memory.HasCapability(ctx, assetresolv.Resolution); ok {
		t.Errorf("empty capability set should not support resolution")
	}
}

func TestCancelled(t *testing.T) {
	b := open(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Resolve(ctx, []string{"bal:///floor"}); err == nil {
		t.Errorf("a cancelled request should fail as a whole")
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, metadata.LibraryFile)
	write := func(location string) {
		lib := metadata.NewLibrary("resolution")
		lib.Put("a", metadata.Version{Location: location})
		f, err := os.Create(libPath)
		if err != nil {
			t.Fatalf("could not create library: %s", err)
		}
		defer f.Close()
		_ = lib.Serialize(f)
	}

	write("/first.usda")
	b, err := bal.Open(libPath)
	if err != nil {
		t.Fatalf("could not open library: %+v", err)
	}

	write("/second.usda")
	if err := b.Reload(); err != nil {
		t.Fatalf("could not reload: %+v", err)
	}

	results, _ := b.Resolve(context.Background(), []string{"bal:///a"})
	if results[0].Entity.Location != "/second.usda" {
		t.Errorf("reload did not take effect, got %s", results[0].Entity.Location)
	}

	if err := bal.New(metadata.NewLibrary()).Reload(); err == nil {
		t.Errorf("reloading an in-memory library should fail")
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := bal.Open("testdata/DOES_NOT_EXIST.json"); err == nil {
		t.Errorf("opening a missing library should fail")
	}
}
