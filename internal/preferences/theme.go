// Package preferences keeps per-session UI preferences.
package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/kvstore"
)

// ThemeKey is the storage key of the theme preference.
const ThemeKey = "themePreference"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"

	DefaultTheme = ThemeDark
)

var ErrInvalidTheme = errors.New("preferences: theme must be light or dark")

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// LoadTheme returns the stored theme, or DefaultTheme when nothing valid is
// stored.
func LoadTheme(ctx context.Context, store kvstore.Store) (Theme, error) {
	raw, err := store.Get(ctx, ThemeKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return DefaultTheme, nil
	}
	if err != nil {
		return DefaultTheme, fmt.Errorf("preferences: load theme: %w", err)
	}
	t, err := ParseTheme(string(raw))
	if err != nil {
		return DefaultTheme, nil
	}
	return t, nil
}

func SaveTheme(ctx context.Context, store kvstore.Store, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	if err := store.Set(ctx, ThemeKey, []byte(t), 0); err != nil {
		return fmt.Errorf("preferences: save theme: %w", err)
	}
	return nil
}
