package reporting

import (
	"os"
	"path/filepath"

	"github.com/ethereum-optimism/infra/op-testrun/types"
)

// ArtifactWriter persists named artifacts
type ArtifactWriter interface {
	WriteArtifact(name string, content []byte) error
}

// DirSink writes artifacts into a single directory
type DirSink struct {
	dir string
}

var _ ArtifactWriter = (*DirSink)(nil)

// OpenDir creates dir if needed and returns a sink writing into it
func OpenDir(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &types.IoError{Path: dir, Err: err}
	}
	return &DirSink{dir: dir}, nil
}

// Dir returns the directory artifacts are written to
func (s *DirSink) Dir() string {
	return s.dir
}

// WriteArtifact writes content to name, relative to the sink directory
func (s *DirSink) WriteArtifact(name string, content []byte) error {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return &types.IoError{Path: path, Err: err}
	}
	return nil
}
