package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed menus/breakfast-v2.json
var defaultMenuJSON []byte

// document mirrors the on-disk menu file.
type document struct {
	Metadata struct {
		MenuID      string   `json:"menu_id" yaml:"menu_id"`
		MenuName    string   `json:"menu_name" yaml:"menu_name"`
		MenuVersion string   `json:"menu_version" yaml:"menu_version"`
		Location    Location `json:"location" yaml:"location"`
	} `json:"metadata" yaml:"metadata"`
	Items []Item `json:"items" yaml:"items"`
}

func (d document) build() (*Catalog, error) {
	return New(d.Metadata.MenuID, d.Metadata.MenuName, d.Metadata.MenuVersion, d.Metadata.Location, d.Items)
}

// FromJSON parses and validates a menu from raw JSON bytes.
func FromJSON(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid menu json: %w", err)
	}
	return doc.build()
}

// FromYAML parses and validates a menu from raw YAML bytes.
func FromYAML(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid menu yaml: %w", err)
	}
	return doc.build()
}

// LoadFile reads a menu file, choosing the decoder from the extension.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("menu %s not found", path)
		}
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FromYAML(data)
	default:
		return FromJSON(data)
	}
}

// Default returns the bundled breakfast menu.
func Default() *Catalog {
	c, err := FromJSON(defaultMenuJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded menu invalid: %v", err))
	}
	return c
}

// Load returns the menu at path, or the bundled menu when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
