package bal_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/birkland/assetresolv/drivers/bal"
	"github.com/birkland/assetresolv/fspath"
	"github.com/birkland/assetresolv/metadata"
	"github.com/go-test/deep"
)

func tree(t *testing.T, files ...string) string {
	dir := t.TempDir()
	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0775); err != nil {
			t.Fatalf("could not create %s: %s", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, []byte("#usda 1.0\n"), 0664); err != nil {
			t.Fatalf("could not write %s: %s", p, err)
		}
	}
	return dir
}

func TestIndex(t *testing.T) {
	dir := tree(t, "props/floor.usda", "shots/parking_lot.usda", "notes.txt", metadata.LibraryFile)

	lib, err := bal.Index(dir, bal.IndexOptions{Extensions: []string{"usda"}})
	if err != nil {
		t.Fatalf("could not index: %+v", err)
	}

	if diffs := deep.Equal([]string{"props/floor", "shots/parking_lot"}, lib.Names()); len(diffs) != 0 {
		t.Errorf("wrong entities: %s", diffs)
	}

	v, err := lib.Lookup("props/floor", 0)
	if err != nil {
		t.Fatalf("lookup failed: %+v", err)
	}
	abs, _ := filepath.Abs(dir)
	if v.Location != abs+"/props/floor.usda" {
		t.Errorf("wrong location %s", v.Location)
	}
	if lib.Capabilities != nil {
		t.Errorf("library should use default capabilities")
	}
}

func TestIndexCollision(t *testing.T) {
	dir := tree(t, "a/floor.usda", "b/floor.usda")

	if _, err := bal.Index(dir, bal.IndexOptions{Names: fspath.Base}); err == nil {
		t.Errorf("colliding entity names should fail the index")
	}
}
