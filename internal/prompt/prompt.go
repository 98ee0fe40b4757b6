// Package prompt loads and compiles the system prompt template.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Source yields the raw template text with {{placeholder}} markers.
type Source interface {
	Template(ctx context.Context) (string, error)
}

// FileSource reads the template from disk on every call so edits apply to
// the next turn.
type FileSource struct {
	Path string
}

func (s FileSource) Template(ctx context.Context) (string, error) {
	if s.Path == "" {
		return "", errors.New("prompt path not configured")
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("read prompt %s: %w", s.Path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("prompt %s is empty", s.Path)
	}
	return string(data), nil
}

// StaticSource always returns the same text.
type StaticSource string

func (s StaticSource) Template(ctx context.Context) (string, error) {
	return string(s), nil
}

// Resolve returns the template from src, or the built-in Fallback when src
// is nil or fails.
func Resolve(ctx context.Context, src Source, logger *zap.Logger) string {
	if src == nil {
		return Fallback
	}
	tmpl, err := src.Template(ctx)
	if err != nil {
		logger.Warn("prompt source unavailable, using fallback", zap.Error(err))
		return Fallback
	}
	return tmpl
}

// Vars are the values substituted into the template.
type Vars struct {
	LocationName    string
	LocationAddress string
	MenuItems       string
	CurrentOrder    string
}

// Compile replaces each known placeholder. Unknown placeholders are left as is.
func Compile(template string, v Vars) string {
	order := v.CurrentOrder
	if order == "" {
		order = "Empty"
	}
	r := strings.NewReplacer(
		"{{location_name}}", v.LocationName,
		"{{location_address}}", v.LocationAddress,
		"{{menu_items}}", v.MenuItems,
		"{{current_order}}", order,
	)
	return r.Replace(template)
}
