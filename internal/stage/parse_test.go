package stage_test

import (
	"strings"
	"testing"

	"github.com/birkland/assetresolv/internal/stage"
	"github.com/go-test/deep"
)

func TestParse(t *testing.T) {
	l, err := stage.Parse(strings.NewReader(`#usda 1.0
(
    "doc"
    defaultPrim = "World"
    upAxis = "Y"
)

# a comment
def Xform "World" (
    prepend references = [@./a.usda@, @bal:///b?v=2@</B>]
    kind = "component"
)
{
    float[] widths = [1, 2.5, -3]
    uniform token purpose = "render"
    double3 xformOp:translate = (0, 1e-3, 0)

    def "Child" (references = @c.usda@)
    {
    }
}

over "Other"
{
}
`))
	if err != nil {
		t.Fatal(err)
	}

	expected := &stage.Layer{
		DefaultPrim: "World",
		Prims: []*stage.Prim{
			{
				Name:       "World",
				Type:       "Xform",
				Path:       "/World",
				References: []string{"./a.usda", "bal:///b?v=2"},
				Attributes: map[string]string{
					"widths":            "[1, 2.5, -3]",
					"purpose":           `"render"`,
					"xformOp:translate": "(0, 1e-3, 0)",
				},
				Children: []*stage.Prim{
					{
						Name:       "Child",
						Path:       "/World/Child",
						References: []string{"c.usda"},
						Attributes: map[string]string{},
					},
				},
			},
			{
				Name:       "Other",
				Path:       "/Other",
				Attributes: map[string]string{},
			},
		},
	}

	if diffs := deep.Equal(expected, l); len(diffs) != 0 {
		t.Errorf("wrong layer: %s", diffs)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"no header":       `def "A" {}`,
		"unterminated":    "#usda 1.0\ndef \"A\" {",
		"unnamed":         "#usda 1.0\ndef Xform {}",
		"bad asset":       "#usda 1.0\ndef \"A\" (references = @a.usda\n) {}",
		"missing value":   "#usda 1.0\ndef \"A\" { int x = }",
		"unbalanced":      "#usda 1.0\ndef \"A\" { int x = (1, 2 }",
		"not a prim":      "#usda 1.0\nclass \"A\" {}",
		"stray character": "#usda 1.0\ndef \"A\" { int x = 1; }",
	}

	for name, src := range cases {
		src := src
		t.Run(name, func(t *testing.T) {
			if _, err := stage.Parse(strings.NewReader(src)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
