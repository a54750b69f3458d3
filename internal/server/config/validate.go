package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints declared in struct tags plus the few
// cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Structure == StructureByDate && strings.TrimSpace(c.Storage.FolderPattern) == "" {
		return fmt.Errorf("invalid config: storage.folder_pattern is required for %s", StructureByDate)
	}
	if c.Storage.Permissions.Files == 0 || c.Storage.Permissions.Directories == 0 {
		return fmt.Errorf("invalid config: storage.permissions must be non-zero")
	}
	return nil
}
