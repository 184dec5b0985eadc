package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/abelbrown/rankscrape/internal/model"
)

var (
	ErrGroupExists   = errors.New("group already exists")
	ErrGroupNotFound = errors.New("group not found")
	ErrGroupName     = errors.New("group name is empty")
	ErrGroupEmpty    = errors.New("group has no items")
)

// Group is a named, curated selection from the cart.
type Group struct {
	Name    string
	Items   []model.Item
	Created time.Time
}

// Session is the cumulative state across runs.
type Session struct {
	Results *Collection
	Cart    *Collection
	groups  []Group
}

// New returns an empty session.
func New() *Session {
	return &Session{Results: NewCollection(), Cart: NewCollection()}
}

// MergeRun folds a run's items into the cumulative results and returns
// how many were new.
func (s *Session) MergeRun(items []model.Item) int {
	return s.Results.Merge(items)
}

// AddToCart copies the results with the given hashes into the cart.
func (s *Session) AddToCart(hashes []string) int {
	return s.Cart.Merge(s.Results.Select(hashes))
}

// CreateGroup snapshots items under name. Names are unique and trimmed.
func (s *Session) CreateGroup(name string, items []model.Item) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrGroupName
	}
	if len(items) == 0 {
		return ErrGroupEmpty
	}
	if _, ok := s.Group(name); ok {
		return fmt.Errorf("%w: %q", ErrGroupExists, name)
	}
	s.groups = append(s.groups, Group{
		Name:    name,
		Items:   NewCollection(items...).Items(),
		Created: time.Now(),
	})
	return nil
}

// RestoreGroup adds a group loaded from storage, replacing any with the same name.
func (s *Session) RestoreGroup(g Group) {
	s.groups = slices.DeleteFunc(s.groups, func(x Group) bool { return x.Name == g.Name })
	s.groups = append(s.groups, g)
}

// DeleteGroup removes the named group.
func (s *Session) DeleteGroup(name string) error {
	before := len(s.groups)
	s.groups = slices.DeleteFunc(s.groups, func(g Group) bool { return g.Name == name })
	if len(s.groups) == before {
		return fmt.Errorf("%w: %q", ErrGroupNotFound, name)
	}
	return nil
}

// Group looks up a group by name.
func (s *Session) Group(name string) (Group, bool) {
	for _, g := range s.groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// Groups returns the groups in creation order.
func (s *Session) Groups() []Group {
	return slices.Clone(s.groups)
}
