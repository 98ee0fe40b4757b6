// Package eval scores the order taker against single-utterance datasets.
package eval

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed datasets/order-correctness-v1.yaml
var defaultDataset []byte

type Modifier struct {
	ModifierID string `yaml:"modifier_id" json:"modifier_id"`
	Name       string `yaml:"name" json:"name"`
}

// ExpectedItem is one line the order should hold after the utterance.
type ExpectedItem struct {
	ItemID    string     `yaml:"item_id" json:"item_id"`
	Name      string     `yaml:"name" json:"name"`
	Quantity  int        `yaml:"quantity" json:"quantity"`
	Size      string     `yaml:"size" json:"size"`
	Modifiers []Modifier `yaml:"modifiers" json:"modifiers"`
}

type Case struct {
	ID            string         `yaml:"id" json:"id"`
	Utterance     string         `yaml:"utterance" json:"utterance"`
	ExpectedItems []ExpectedItem `yaml:"expected_items" json:"expected_items"`
	Category      string         `yaml:"category" json:"category"`
	Difficulty    string         `yaml:"difficulty" json:"difficulty"`
}

type Dataset struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Cases       []Case `yaml:"cases"`
}

// LoadDataset reads a YAML dataset. An empty path returns the bundled one.
func LoadDataset(path string) (Dataset, error) {
	data := defaultDataset
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Dataset{}, fmt.Errorf("read dataset %s: %w", path, err)
		}
		data = b
	}
	return ParseDataset(data)
}

func ParseDataset(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("invalid dataset yaml: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

func (d Dataset) Validate() error {
	if len(d.Cases) == 0 {
		return fmt.Errorf("dataset %q has no cases", d.Name)
	}
	seen := make(map[string]bool, len(d.Cases))
	for i, c := range d.Cases {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("dataset case %d: id is required", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("dataset case %s: duplicate id", c.ID)
		}
		seen[c.ID] = true
		if strings.TrimSpace(c.Utterance) == "" {
			return fmt.Errorf("dataset case %s: utterance is required", c.ID)
		}
		for _, it := range c.ExpectedItems {
			if it.ItemID == "" || it.Quantity < 1 {
				return fmt.Errorf("dataset case %s: expected items need item_id and quantity >= 1", c.ID)
			}
		}
	}
	return nil
}
