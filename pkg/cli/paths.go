package cli

import (
	"os"
	"path/filepath"
)

const (
	// BaseDirName is the per-user voxauth directory under $HOME.
	BaseDirName = ".voxauth"
	// ConfigFileName is the default configuration filename.
	ConfigFileName = "config.yaml"
)

// Paths resolves the standard voxauth directory layout:
//
//	~/.voxauth/config.yaml   pipeline configuration
//	~/.voxauth/db/           enrollment database
//	~/.voxauth/models/       trained classifier artifacts
type Paths struct {
	home string
}

// NewPaths resolves paths against the user's home directory.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{home: home}, nil
}

// BaseDir returns the voxauth base directory.
func (p *Paths) BaseDir() string {
	return filepath.Join(p.home, BaseDirName)
}

// ConfigFile returns the default config file path.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), ConfigFileName)
}

// DBDir returns the enrollment database directory.
func (p *Paths) DBDir() string {
	return filepath.Join(p.BaseDir(), "db")
}

// ModelDir returns the local model artifact directory.
func (p *Paths) ModelDir() string {
	return filepath.Join(p.BaseDir(), "models")
}

// EnsureBaseDir creates the base directory if it does not exist.
func (p *Paths) EnsureBaseDir() error {
	return os.MkdirAll(p.BaseDir(), 0o755)
}
