package yamlfile

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

type file struct {
	// Default applies to every caller without an entry of their own,
	// including anonymous ones when auth is off.
	Default  *domain.Profile  `yaml:"default"`
	Profiles []domain.Profile `yaml:"profiles"`
}

// Store serves profiles loaded once from a YAML file.
type Store struct {
	byUser   map[string]domain.Profile
	fallback *domain.Profile
}

func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Store, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse profile file: %w", err)
	}
	store := &Store{byUser: make(map[string]domain.Profile, len(f.Profiles)), fallback: f.Default}
	for i, p := range f.Profiles {
		id := strings.TrimSpace(p.UserID)
		if id == "" {
			return nil, fmt.Errorf("parse profile file: profiles[%d] has no user_id", i)
		}
		if _, dup := store.byUser[id]; dup {
			return nil, fmt.Errorf("parse profile file: duplicate user_id %q", id)
		}
		store.byUser[id] = p
	}
	return store, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	if p, ok := s.byUser[userID]; ok {
		return &p, nil
	}
	if s.fallback != nil {
		p := *s.fallback
		p.UserID = userID
		return &p, nil
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get profile", fmt.Errorf("user %s", userID))
}
