package file

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/jsphweid/meigen/util"
)

// Catalog maps exercise names (file names without extension) to paths.
type Catalog map[string]string

func isExercise(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}

func GatherExercisePaths(root string) ([]string, error) {
	var res []string
	walk := func(s string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isExercise(s) {
			res = append(res, s)
		}
		return nil
	}
	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, fmt.Errorf("error walking %s: %w", root, err)
	}
	return res, nil
}

func CreateCatalog(paths []string) (Catalog, error) {
	res := make(Catalog)
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if prev, ok := res[name]; ok {
			return nil, fmt.Errorf("exercise %q is defined by both %s and %s", name, prev, p)
		}
		res[name] = p
	}
	return res, nil
}

func LoadCatalog(root string) (Catalog, error) {
	paths, err := GatherExercisePaths(root)
	if err != nil {
		return nil, err
	}
	return CreateCatalog(paths)
}

func (c Catalog) Names() []string {
	return util.GetSortedKeys(c)
}
