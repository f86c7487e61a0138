package frameworks

import (
	"bytes"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

// denyDirFS fails ReadDir for one directory, like an unreadable subtree
type denyDirFS struct {
	fs.FS
	deny string
}

func (f denyDirFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name == f.deny {
		return nil, fs.ErrPermission
	}
	return fs.ReadDir(f.FS, name)
}

func TestDiscover(t *testing.T) {
	fsys := fstest.MapFS{
		"A.framework/Headers/A.h":          {},
		"nested/C.framework/C":             {},
		"nested/readme.txt":                {},
		"excluded/B.framework/Headers/B.h": {},
	}

	found := Discover(fsys, map[string]bool{"excluded": true})
	assert.ElementsMatch(t, []Framework{
		{Dir: ".", Name: "A"},
		{Dir: "nested", Name: "C"},
	}, found)
}

func TestDiscoverNoExclusions(t *testing.T) {
	fsys := fstest.MapFS{
		"A.framework/Headers/A.h":    {},
		"excluded/B.framework/mod":   {},
		"plain/dir/not-a-bundle.txt": {},
	}

	found := Discover(fsys, nil)
	assert.ElementsMatch(t, []Framework{
		{Dir: ".", Name: "A"},
		{Dir: "excluded", Name: "B"},
	}, found)
}

func TestDiscoverSkipsUnreadable(t *testing.T) {
	base := fstest.MapFS{
		"A.framework/Headers/A.h":        {},
		"locked/B.framework/Headers/B.h": {},
		"zz/C.framework/Headers/C.h":     {},
	}

	found := Discover(denyDirFS{FS: base, deny: "locked"}, nil)
	assert.ElementsMatch(t, []Framework{
		{Dir: ".", Name: "A"},
		{Dir: "zz", Name: "C"},
	}, found, "an unreadable subtree must not stop discovery")
}

func TestEmit(t *testing.T) {
	var buf bytes.Buffer
	Emit(&buf, []Framework{
		{Dir: "/Library/Frameworks", Name: "CoreFoo"},
		{Dir: ".", Name: "Bar"},
	})

	assert.Equal(t,
		"link-search=framework=/Library/Frameworks\n"+
			"link-lib=framework=CoreFoo\n"+
			"link-search=framework=.\n"+
			"link-lib=framework=Bar\n",
		buf.String())
}

func TestEmitNothing(t *testing.T) {
	var buf bytes.Buffer
	Emit(&buf, nil)
	assert.Empty(t, buf.String())
}
