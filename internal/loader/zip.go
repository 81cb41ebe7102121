package loader

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
)

// archiveMember is a file extracted from a claims archive.
type archiveMember struct {
	// Name is the slash-separated path inside the archive.
	Name string
	// Path is where the member was written on disk.
	Path string
}

// extractMembers writes the archive members accepted by keep into destDir
// and returns them ordered by name. Directories and rejected members are
// never written.
func extractMembers(zipPath, destDir string, keep func(name string) bool) ([]archiveMember, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	var members []archiveMember
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !keep(f.Name) {
			continue
		}
		path, err := writeMember(f, destDir)
		if err != nil {
			return nil, err
		}
		members = append(members, archiveMember{Name: f.Name, Path: path})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })

	return members, nil
}

// writeMember copies one member under destDir. Names that would land
// outside destDir are rejected.
func writeMember(f *zip.File, destDir string) (string, error) {
	rel := filepath.FromSlash(f.Name)
	if !filepath.IsLocal(rel) {
		return "", eris.Errorf("zip: member %q escapes the archive root", f.Name)
	}
	dest := filepath.Join(destDir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrapf(err, "zip: create dir for %s", f.Name)
	}

	src, err := f.Open()
	if err != nil {
		return "", eris.Wrapf(err, "zip: open member %s", f.Name)
	}
	defer src.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrapf(err, "zip: create %s", dest)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close() //nolint:errcheck
		return "", eris.Wrapf(err, "zip: copy member %s", f.Name)
	}
	if err := out.Close(); err != nil {
		return "", eris.Wrapf(err, "zip: close %s", dest)
	}

	return dest, nil
}
