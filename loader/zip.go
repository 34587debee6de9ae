package loader

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"scene-viewer/scene"
)

// bundlePreference orders the mesh formats tried inside a bundle.
var bundlePreference = []Format{FormatGLB, FormatGLTF, FormatOBJ}

// loadBundle extracts a zip archive to a scratch directory and loads the
// first mesh file found in it, preferring glTF over OBJ. Textures are read
// eagerly, so the scratch directory is removed before returning.
func (l *Loader) loadBundle(path string) (*scene.Node, error) {
	dir, err := os.MkdirTemp("", "viewer-bundle-*")
	if err != nil {
		return nil, fmt.Errorf("bundle %q: %w", path, err)
	}
	defer os.RemoveAll(dir)

	files, err := extractZip(path, dir)
	if err != nil {
		return nil, fmt.Errorf("bundle %q: %w", path, err)
	}

	for _, want := range bundlePreference {
		idx := slices.IndexFunc(files, func(f string) bool { return FormatForExt(f) == want })
		if idx < 0 {
			continue
		}
		var root *scene.Node
		if want == FormatOBJ {
			root, err = l.loadOBJ(files[idx])
		} else {
			root, err = l.loadGLTF(files[idx])
		}
		if err != nil {
			return nil, fmt.Errorf("bundle %q: %w", path, err)
		}
		root.Name = baseName(path)
		return root, nil
	}
	return nil, fmt.Errorf("%w: bundle %q holds no mesh file", ErrUnsupported, path)
}

// extractZip writes every regular file of the archive under dir and returns
// their paths in archive order. Entries that would land outside dir are
// rejected.
func extractZip(path, dir string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var files []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !filepath.IsLocal(f.Name) {
			return nil, fmt.Errorf("entry %q escapes the archive", f.Name)
		}
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}
		if err := extractFile(f, target); err != nil {
			return nil, fmt.Errorf("entry %q: %w", f.Name, err)
		}
		files = append(files, target)
	}
	return files, nil
}

func extractFile(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
