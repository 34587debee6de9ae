// Package loader turns asset files into scene nodes.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/h2non/filetype"

	"scene-viewer/scene"
)

// ErrUnsupported is returned for files the viewer cannot load.
var ErrUnsupported = errors.New("unsupported asset format")

// Format is the detected type of an asset file.
type Format int

const (
	FormatUnknown Format = iota
	FormatOBJ
	FormatGLTF
	FormatGLB
	FormatZip
	FormatImage
	FormatScene
)

func (f Format) String() string {
	switch f {
	case FormatOBJ:
		return "obj"
	case FormatGLTF:
		return "gltf"
	case FormatGLB:
		return "glb"
	case FormatZip:
		return "zip"
	case FormatImage:
		return "image"
	case FormatScene:
		return "scene"
	}
	return "unknown"
}

// IsMesh reports whether f loads into a node tree.
func (f Format) IsMesh() bool {
	switch f {
	case FormatOBJ, FormatGLTF, FormatGLB, FormatZip:
		return true
	}
	return false
}

var extFormats = map[string]Format{
	".obj":  FormatOBJ,
	".gltf": FormatGLTF,
	".glb":  FormatGLB,
	".zip":  FormatZip,
	".png":  FormatImage,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
	".bmp":  FormatImage,
	".tif":  FormatImage,
	".tiff": FormatImage,
	".webp": FormatImage,
	".json": FormatScene,
	".yaml": FormatScene,
	".yml":  FormatScene,
}

// FormatForExt maps a file extension to a format.
func FormatForExt(path string) Format {
	return extFormats[strings.ToLower(filepath.Ext(path))]
}

// IsMeshPathSupported reports whether path names a loadable mesh file.
func IsMeshPathSupported(path string) bool {
	return FormatForExt(path).IsMesh()
}

var glbMagic = []byte("glTF")

// Detect identifies the format of a file from its leading bytes, falling
// back to the extension for text formats.
func Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("detect %q: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("detect %q: %w", path, err)
	}
	return detectBytes(head[:n], path), nil
}

func detectBytes(head []byte, path string) Format {
	if bytes.HasPrefix(head, glbMagic) {
		return FormatGLB
	}
	if filetype.IsImage(head) {
		return FormatImage
	}
	if kind, err := filetype.Match(head); err == nil && kind.Extension == "zip" {
		return FormatZip
	}
	return FormatForExt(path)
}

// Loader loads asset files into scene nodes.
type Loader struct {
	Logger *slog.Logger
	// Dirs are searched, in order, for relative paths that do not exist
	// as given.
	Dirs []string
}

func New(logger *slog.Logger, dirs ...string) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Logger: logger, Dirs: dirs}
}

// Load reads an asset and returns its root node. The node's Source is the
// resolved path so the asset can be reloaded or saved by reference.
func (l *Loader) Load(path string) (*scene.Node, error) {
	resolved, err := l.Locate(path)
	if err != nil {
		return nil, err
	}
	format, err := Detect(resolved)
	if err != nil {
		return nil, err
	}

	var root *scene.Node
	switch format {
	case FormatOBJ:
		root, err = l.loadOBJ(resolved)
	case FormatGLTF, FormatGLB:
		root, err = l.loadGLTF(resolved)
	case FormatZip:
		root, err = l.loadBundle(resolved)
	default:
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupported, resolved, format)
	}
	if err != nil {
		return nil, err
	}

	root.Source = resolved
	l.Logger.Info("asset loaded", "path", resolved, "format", format.String(), "nodes", root.Count())
	return root, nil
}

// LoadTexture reads an image file for use as a texture override.
func (l *Loader) LoadTexture(path string) (*scene.Texture, error) {
	resolved, err := l.Locate(path)
	if err != nil {
		return nil, err
	}
	return scene.LoadTexture(resolved)
}

// Locate resolves path directly or against the search directories.
func (l *Loader) Locate(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return filepath.Abs(path)
	}
	if !filepath.IsAbs(path) {
		for _, dir := range l.Dirs {
			candidate := filepath.Join(dir, path)
			if _, err := os.Stat(candidate); err == nil {
				return filepath.Abs(candidate)
			}
		}
	}
	return "", fmt.Errorf("asset %q: %w", path, fs.ErrNotExist)
}

// ListAssets returns every loadable mesh file under dirs, sorted.
// Directories that do not exist are skipped.
func ListAssets(dirs []string) ([]string, error) {
	var out []string
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir && errors.Is(err, fs.ErrNotExist) {
					return fs.SkipDir
				}
				return err
			}
			if !d.IsDir() && IsMeshPathSupported(path) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list assets in %q: %w", dir, err)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// wrap turns a list of meshes into a node. A single mesh becomes a mesh
// node; several become children of a group.
func wrap(name string, meshes []*scene.Mesh) *scene.Node {
	if len(meshes) == 1 {
		return scene.NewMeshNode(name, meshes[0])
	}
	root := scene.NewNode(name)
	for _, m := range meshes {
		// Fresh nodes cannot form a cycle.
		_ = root.AddChild(scene.NewMeshNode(m.Name, m))
	}
	return root
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
