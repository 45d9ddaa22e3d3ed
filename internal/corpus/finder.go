package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// Ref locates one document file and its numeric id.
type Ref struct {
	ID   int
	Path string
}

// Finder discovers corpus document files named <prefix><N><ext> under a
// directory. N is the document id.
type Finder struct {
	Dir    string
	Prefix string
	Ext    string
}

func (f Finder) pattern() *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(f.Prefix) + `(\d+)` + regexp.QuoteMeta(f.Ext) + `$`)
}

// DocID extracts the document id from a file path. The base name must match
// the finder's <prefix><N><ext> pattern exactly.
func (f Finder) DocID(path string) (int, error) {
	name := filepath.Base(path)
	m := f.pattern().FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("filename %q does not match %s<N>%s", name, f.Prefix, f.Ext)
	}
	var id int
	if _, err := fmt.Sscanf(m[1], "%d", &id); err != nil {
		return 0, fmt.Errorf("filename %q: bad document id: %w", name, err)
	}
	return id, nil
}

// Path returns the file path a document id maps to under the finder's
// directory.
func (f Finder) Path(id int) string {
	return filepath.Join(f.Dir, fmt.Sprintf("%s%d%s", f.Prefix, id, f.Ext))
}

// Documents lists all matching document files sorted by id. Non-matching
// files in the directory are ignored.
func (f Finder) Documents() ([]Ref, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, fmt.Errorf("list corpus dir: %w", err)
	}

	refs := make([]Ref, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, err := f.DocID(entry.Name())
		if err != nil {
			continue
		}
		refs = append(refs, Ref{ID: id, Path: filepath.Join(f.Dir, entry.Name())})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}
