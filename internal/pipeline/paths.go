package pipeline

import (
	"path/filepath"

	v1 "github.com/kination/bundlepub/api/v1"
)

// PathsFor derives every path of a package from the root directory.
func PathsFor(root string, pkg v1.PackageName) v1.PathSet {
	name := string(pkg)
	src := filepath.Join(root, "packages", name)
	return v1.PathSet{
		Package:          pkg,
		SrcDir:           src,
		EntryPoint:       filepath.Join(src, "src", "index.js"),
		OutDir:           filepath.Join(root, "dist", "package", name),
		StageDir:         filepath.Join(root, "dist", "packages-dist", name),
		Filename:         name + ".js",
		MinifiedFilename: name + ".min.js",
	}
}
