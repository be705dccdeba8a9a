// Package paramspace loads and validates the searchable parameter domain for
// a strategy kind.
package paramspace

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/storage"
)

// Loader reads enabled parameter-space entries for one strategy kind.
type Loader struct {
	store        storage.ParamSpaceStore
	strategyKind string
}

// NewLoader creates a Loader for the given strategy kind.
func NewLoader(store storage.ParamSpaceStore, strategyKind string) *Loader {
	return &Loader{store: store, strategyKind: strategyKind}
}

// LoadEnabledSpace returns the enabled entries keyed by normalized parameter
// name. A single invalid entry aborts the whole load: a malformed space must
// not silently produce a partial one.
func (l *Loader) LoadEnabledSpace(ctx context.Context) (map[string]domain.ParamSpaceItem, error) {
	items, err := l.store.GetByStrategyKind(ctx, l.strategyKind)
	if err != nil {
		return nil, fmt.Errorf("load param space for %s: %w", l.strategyKind, err)
	}

	space := make(map[string]domain.ParamSpaceItem)
	for _, item := range items {
		if !item.Enabled {
			continue
		}
		if err := validate(item); err != nil {
			return nil, fmt.Errorf("invalid param space entry %q: %w", item.Name, err)
		}

		key := NormalizeName(item.Name)
		if _, exists := space[key]; exists {
			return nil, fmt.Errorf("duplicate param space entry %q", key)
		}

		normalized := *item
		normalized.Name = key
		space[key] = normalized
	}

	return space, nil
}

// NormalizeName produces the canonical form of a parameter name: trimmed,
// with a lower-case first rune (lowerCamel like the rest of the snapshot keys).
func NormalizeName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return trimmed
	}
	runes := []rune(trimmed)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func validate(item *domain.ParamSpaceItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("empty name")
	}

	switch item.ValueType {
	case domain.ValueTypeInt, domain.ValueTypeFloat:
	default:
		return fmt.Errorf("unknown value type %q", item.ValueType)
	}

	if item.Min > item.Max {
		return fmt.Errorf("min %v greater than max %v", item.Min, item.Max)
	}
	if item.Step <= 0 {
		return fmt.Errorf("step must be positive, got %v", item.Step)
	}
	if item.ValueType == domain.ValueTypeInt && item.Step != float64(int64(item.Step)) {
		return fmt.Errorf("integer parameter has fractional step %v", item.Step)
	}

	return nil
}
