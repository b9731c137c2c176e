// Package workspace resolves workspace identifiers to the working
// directory and environment a terminal session runs in.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver maps a workspace ID to a working directory and extra
// environment variables. Consulted once, at session creation.
type Resolver interface {
	Resolve(workspaceID string) (dir string, env []string, err error)
}

// DirResolver roots each workspace's files under Root/<workspaceID>.
type DirResolver struct {
	root string
}

// NewDirResolver creates a resolver rooted at root.
func NewDirResolver(root string) *DirResolver {
	return &DirResolver{root: root}
}

// Resolve returns the workspace directory, which must already exist.
func (r *DirResolver) Resolve(workspaceID string) (string, []string, error) {
	if workspaceID == "" {
		return "", nil, fmt.Errorf("empty workspace id")
	}
	// Workspace IDs are path components, never paths.
	if strings.ContainsAny(workspaceID, "/\\") || workspaceID == "." || workspaceID == ".." {
		return "", nil, fmt.Errorf("invalid workspace id %q", workspaceID)
	}

	dir := filepath.Join(r.root, workspaceID)
	info, err := os.Stat(dir)
	if err != nil {
		return "", nil, fmt.Errorf("workspace %s: %w", workspaceID, err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("workspace %s: not a directory", workspaceID)
	}

	env := []string{"WORKTERM_WORKSPACE=" + workspaceID}
	return dir, env, nil
}
