package resolv_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/birkland/assetresolv/resolv"
	"github.com/go-test/deep"
)

func TestClassify(t *testing.T) {
	cl := resolv.NewClassifier("bal")

	cases := []struct {
		name     string
		ref      string
		expected string
		entity   bool
	}{
		{"simple", "bal:///floor", "bal:///floor", true},
		{"upperScheme", "BAL:///floor", "bal:///floor", true},
		{"dotSegments", "bal:///a/./b/../floor", "bal:///a/floor", true},
		{"doubleSlash", "bal:////a//floor", "bal:///a/floor", true},
		{"trailingSlash", "bal:///floor/", "bal:///floor", true},
		{"query", "bal:///floor?v=2", "bal:///floor?v=2", true},
		{"emptyPath", "bal:///", "bal:///", true},
		{"noAuthority", "bal:floor", "bal:floor", true},
		{"relative", "./floor.usda", "", false},
		{"searchPath", "floor.usda", "", false},
		{"absolute", "/tmp/floor.usda", "", false},
		{"otherScheme", "ams:///floor", "", false},
		{"schemeOnlyPrefix", "balloon.usda", "", false},
		{"empty", "", "", false},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			id, ok := cl.Classify(c.ref)
			if ok != c.entity {
				t.Fatalf("expected entity=%t for %s, got %t", c.entity, c.ref, ok)
			}
			if id != c.expected {
				t.Errorf("expected identifier %q, got %q", c.expected, id)
			}

			if ok {
				again, _ := cl.Classify(id)
				if again != id {
					t.Errorf("classification is not idempotent: %q -> %q", id, again)
				}
			}
		})
	}
}

func TestNoScheme(t *testing.T) {
	c := resolv.NewClassifier("")
	if c.IsEntityReference(":///x") {
		t.Errorf("a classifier without a scheme should never match")
	}
}

func TestPathKinds(t *testing.T) {
	cases := []struct {
		ref        string
		relative   bool
		searchPath bool
	}{
		{"./a.usda", true, false},
		{"../a.usda", true, false},
		{"a.usda", false, true},
		{"dir/a.usda", false, true},
		{"/abs/a.usda", false, false},
		{"file:///abs/a.usda", false, false},
		{"", false, false},
	}

	for _, c := range cases {
		c := c
		t.Run(c.ref, func(t *testing.T) {
			if got := resolv.IsRelative(c.ref); got != c.relative {
				t.Errorf("IsRelative(%q) = %t", c.ref, got)
			}
			if got := resolv.IsSearchPath(c.ref); got != c.searchPath {
				t.Errorf("IsSearchPath(%q) = %t", c.ref, got)
			}
		})
	}
}

func TestAnchor(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "lib", "shots", "parking_lot.usda")
	expected := filepath.Join(string(filepath.Separator), "lib", "props", "floor.usda")

	if got := resolv.Anchor(base, "../props/floor.usda"); got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}

	if got := resolv.Anchor("file:///lib/shots/parking_lot.usda", "../props/floor.usda"); got != filepath.FromSlash("/lib/props/floor.usda") {
		t.Errorf("file URL base was not anchored correctly, got %s", got)
	}
}

func TestCxt(t *testing.T) {
	ctx := context.Background()
	if _, ok := resolv.FromContext(ctx); ok {
		t.Errorf("no context should be bound")
	}

	cxt := resolv.NewCxt("/a", "/b")
	ctx = resolv.WithCxt(ctx, cxt)

	if diffs := deep.Equal([]string{"/a", "/b"}, resolv.SearchPaths(ctx)); len(diffs) != 0 {
		t.Errorf("wrong search paths: %s", diffs)
	}
}
