// Package bundle loads .zpipe files: a flat ZIP archive containing
// exactly one pipeline.json declarative graph plus zero or more named
// resource entries, everything else rejected at load time rather than
// silently ignored.
package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/divvun/divvun-pipeline/internal/graph"
	"github.com/divvun/divvun-pipeline/internal/resources"
	"github.com/divvun/divvun-pipeline/internal/schema"
)

// pipelineEntryName is the one required entry in every .zpipe archive.
const pipelineEntryName = "pipeline.json"

// Bundle is a loaded .zpipe: its decoded pipeline graph plus a resource
// registry populated with every other archive entry, keyed by its flat
// filename.
type Bundle struct {
	Pipeline  *graph.Pipeline
	Resources *resources.Registry
}

// Load opens path as a .zpipe archive, validates and decodes its
// pipeline.json, and registers every remaining entry as a resource. It
// enforces a flat layout: any entry whose name contains a path separator
// (a nested directory) or ".." is rejected outright rather than quietly
// flattened, since a bundle author depending on directory structure to
// disambiguate resources has already violated the one-name-one-resource
// contract the rest of the system assumes.
func Load(path string) (*Bundle, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: open %s: %w", path, err)
	}
	defer zr.Close()

	if err := validateFlatLayout(zr.File); err != nil {
		return nil, err
	}

	var pipelineData []byte
	resourceFiles := make(map[string]*zip.File)

	for _, f := range zr.File {
		if f.Name == pipelineEntryName {
			pipelineData, err = readAll(f)
			if err != nil {
				return nil, fmt.Errorf("bundle: read %s: %w", pipelineEntryName, err)
			}
			continue
		}
		resourceFiles[f.Name] = f
	}

	if pipelineData == nil {
		return nil, fmt.Errorf("bundle: %s missing %s", path, pipelineEntryName)
	}

	if err := schema.ValidatePipelineJSON(pipelineData); err != nil {
		return nil, fmt.Errorf("bundle: %s: %w", pipelineEntryName, err)
	}

	p, err := graph.Unmarshal(pipelineData)
	if err != nil {
		return nil, fmt.Errorf("bundle: decode %s: %w", pipelineEntryName, err)
	}
	if err := graph.Validate(p); err != nil {
		return nil, fmt.Errorf("bundle: %s: %w", pipelineEntryName, err)
	}

	reg := resources.NewRegistry()
	for name, f := range resourceFiles {
		data, err := readAll(f)
		if err != nil {
			return nil, fmt.Errorf("bundle: read resource %q: %w", name, err)
		}
		reg.Add(name, resources.InlineSource{Data: data})
	}

	return &Bundle{Pipeline: p, Resources: reg}, nil
}

// validateFlatLayout rejects any entry that isn't a plain, single-level
// filename: no directory separators, no "..", no absolute paths.
func validateFlatLayout(files []*zip.File) error {
	for _, f := range files {
		name := f.Name
		if name == "" || strings.Contains(name, "/") || strings.Contains(name, "\\") {
			return fmt.Errorf("bundle: entry %q is not a flat filename (nested paths are not allowed)", name)
		}
		if name == ".." || path.Clean(name) != name {
			return fmt.Errorf("bundle: entry %q is not a valid resource name", name)
		}
		if strings.HasPrefix(name, "/") {
			return fmt.Errorf("bundle: entry %q is an absolute path", name)
		}
	}
	return nil
}

// readAll reads a zip entry's uncompressed bytes regardless of whether
// it was stored or deflated — the archive/zip reader handles both
// transparently once opened.
func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
