// Package configuration reads optional Unix-style configuration files
// that supply defaults for flags like the hashing buffer size. Flags
// always win over configuration values.
package configuration

import (
	"os"
	"path/filepath"
	"strconv"
)

// Configuration keys recognized in treeop configuration files.
const (
	KeyBufSize      = "TREEOP_BUFSIZE"
	KeyWidth        = "TREEOP_WIDTH"
	KeyMaxHardlinks = "TREEOP_MAX_HARDLINKS"
)

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

// Handler resolves configuration values from the first existing
// configuration file.
type Handler struct {
	Provider genericConfigProvider

	values map[string]string
}

// NewHandler returns a configuration Handler over the given provider.
func NewHandler(provider genericConfigProvider) *Handler {
	return &Handler{
		Provider: provider,
		values:   map[string]string{},
	}
}

// DefaultPaths lists the configuration files probed in order.
func DefaultPaths() []string {
	paths := []string{"/etc/treeop.conf"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".treeop.conf"))
	}

	return paths
}

// Load reads the first existing file of paths; missing files are not
// an error, a present but unparsable file is.
func (h *Handler) Load(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		values, err := h.Provider.Read(path)
		if err != nil {
			return err
		}
		h.values = values

		return nil
	}

	return nil
}

// String returns the configured value for key, or fallback.
func (h *Handler) String(key, fallback string) string {
	if value, exists := h.values[key]; exists && value != "" {
		return value
	}

	return fallback
}

// Int returns the configured integer for key, or fallback when the
// key is absent or not a number.
func (h *Handler) Int(key string, fallback int) int {
	value, exists := h.values[key]
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return parsed
}

// Uint64 returns the configured uint64 for key, or fallback.
func (h *Handler) Uint64(key string, fallback uint64) uint64 {
	value, exists := h.values[key]
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fallback
	}

	return parsed
}
