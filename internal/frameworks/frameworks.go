// Package frameworks discovers Apple framework bundles under a directory
// tree and emits linker directives for the enclosing build.
package frameworks

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

const bundleExt = ".framework"

// Framework is a discovered bundle: the directory containing it and its name
// without the bundle extension.
type Framework struct {
	Dir  string
	Name string
}

// Discover walks fsys and collects every .framework bundle whose path
// contains no component named in exclude. Unreadable entries are skipped
// silently and the walk continues; discovery order follows the walk and
// carries no guarantee.
func Discover(fsys fs.FS, exclude map[string]bool) []Framework {
	var found []Framework
	fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // permission or race, keep walking
		}
		if p != "." && exclude[d.Name()] {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), bundleExt) {
			found = append(found, Framework{
				Dir:  path.Dir(p),
				Name: strings.TrimSuffix(d.Name(), bundleExt),
			})
		}
		return nil
	})
	return found
}

// Emit writes the search-path and link directive pair for each framework,
// one line each, in the form the build orchestrator consumes. Duplicate
// directives are the linker's problem, not ours.
func Emit(w io.Writer, fws []Framework) {
	for _, fw := range fws {
		fmt.Fprintf(w, "link-search=framework=%s\n", fw.Dir)
		fmt.Fprintf(w, "link-lib=framework=%s\n", fw.Name)
	}
}
