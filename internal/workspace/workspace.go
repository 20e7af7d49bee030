// Package workspace manages the ephemeral build directory for one deploy.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is an isolated temporary directory holding the extracted source
// tree and the generated site for a single invocation. Callers must Close it
// when the invocation finishes, on success or failure.
type Workspace struct {
	root string
}

// New creates a uniquely named temporary directory with an empty public/
// output directory inside it.
func New() (*Workspace, error) {
	root, err := os.MkdirTemp("", "site-deploy-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	if err := os.Mkdir(filepath.Join(root, "public"), 0o755); err != nil {
		_ = os.RemoveAll(root)
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Workspace{root: root}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Src returns the directory the extracted repository archive is relocated to.
func (w *Workspace) Src() string {
	return filepath.Join(w.root, "src")
}

// Themes returns the directory themes are installed into.
func (w *Workspace) Themes() string {
	return filepath.Join(w.Src(), "themes")
}

// Public returns the build output directory.
func (w *Workspace) Public() string {
	return filepath.Join(w.root, "public")
}

// Close removes the workspace and everything under it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.root)
}
