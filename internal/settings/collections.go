package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type itemKind struct {
	key      string
	noun     string
	validate func(string) (string, error)
}

var (
	fileKind     = itemKind{key: KeyFiles, noun: "File", validate: ValidateFileName}
	usernameKind = itemKind{key: KeyUsernames, noun: "Username", validate: ValidateUsername}
)

// mutate runs a read-modify-write cycle on the cached document. fn
// returns the partial to save. Mutations are serialized, and the change
// set is published after the lock is released.
func (s *Store) mutate(ctx context.Context, fn func(doc Settings) (Settings, error)) error {
	s.crudMu.Lock()
	partial, err := fn(s.Load(ctx, true))
	if err != nil {
		s.crudMu.Unlock()
		return err
	}
	changes, ok := s.save(ctx, partial)
	s.crudMu.Unlock()

	s.bus.Publish(changes)
	if !ok {
		return ErrSaveFailed
	}
	return nil
}

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

func (s *Store) addItem(ctx context.Context, kind itemKind, name string) (Item, error) {
	name, err := kind.validate(name)
	if err != nil {
		return Item{}, err
	}
	var added Item
	err = s.mutate(ctx, func(doc Settings) (Settings, error) {
		items := doc.Items(kind.key)
		if lo.ContainsBy(items, func(it Item) bool { return sameName(it.Name, name) }) {
			return nil, invalid(kind.key, "%s %q already exists", kind.noun, name)
		}
		added = Item{ID: s.ids.Next(), Name: name, Enabled: true, Deletable: true}
		return Settings{kind.key: append(items, added)}, nil
	})
	if err != nil {
		return Item{}, err
	}
	return added, nil
}

func (s *Store) editItem(ctx context.Context, kind itemKind, id, name string) error {
	name, err := kind.validate(name)
	if err != nil {
		return err
	}
	return s.mutate(ctx, func(doc Settings) (Settings, error) {
		items := doc.Items(kind.key)
		_, i, ok := lo.FindIndexOf(items, func(it Item) bool { return it.ID == id })
		if !ok {
			return nil, fmt.Errorf("%s %s: %w", strings.ToLower(kind.noun), id, ErrNotFound)
		}
		if lo.ContainsBy(items, func(it Item) bool { return it.ID != id && sameName(it.Name, name) }) {
			return nil, invalid(kind.key, "%s %q already exists", kind.noun, name)
		}
		items[i].Name = name
		return Settings{kind.key: items}, nil
	})
}

func (s *Store) removeItem(ctx context.Context, kind itemKind, id string) bool {
	err := s.mutate(ctx, func(doc Settings) (Settings, error) {
		items := doc.Items(kind.key)
		it, ok := lo.Find(items, func(it Item) bool { return it.ID == id })
		if !ok {
			return nil, ErrNotFound
		}
		if !it.Deletable {
			return nil, invalid(kind.key, "%s %q cannot be removed", kind.noun, it.Name)
		}
		return Settings{kind.key: lo.Reject(items, func(it Item, _ int) bool { return it.ID == id })}, nil
	})
	return err == nil
}

func (s *Store) toggleItem(ctx context.Context, kind itemKind, id string, enabled bool) bool {
	err := s.mutate(ctx, func(doc Settings) (Settings, error) {
		items := doc.Items(kind.key)
		_, i, ok := lo.FindIndexOf(items, func(it Item) bool { return it.ID == id })
		if !ok {
			return nil, ErrNotFound
		}
		items[i].Enabled = enabled
		return Settings{kind.key: items}, nil
	})
	return err == nil
}

// AddFile appends a new enabled file filter entry.
func (s *Store) AddFile(ctx context.Context, name string) (Item, error) {
	return s.addItem(ctx, fileKind, name)
}

// EditFile renames a file filter entry.
func (s *Store) EditFile(ctx context.Context, id, name string) error {
	return s.editItem(ctx, fileKind, id, name)
}

// RemoveFile deletes a file filter entry.
func (s *Store) RemoveFile(ctx context.Context, id string) bool {
	return s.removeItem(ctx, fileKind, id)
}

// ToggleFileEnabled sets whether a file filter entry is active.
func (s *Store) ToggleFileEnabled(ctx context.Context, id string, enabled bool) bool {
	return s.toggleItem(ctx, fileKind, id, enabled)
}

// AddUsername appends a new enabled username filter entry.
func (s *Store) AddUsername(ctx context.Context, name string) (Item, error) {
	return s.addItem(ctx, usernameKind, name)
}

// EditUsername renames a username filter entry.
func (s *Store) EditUsername(ctx context.Context, id, name string) error {
	return s.editItem(ctx, usernameKind, id, name)
}

// RemoveUsername deletes a username filter entry.
func (s *Store) RemoveUsername(ctx context.Context, id string) bool {
	return s.removeItem(ctx, usernameKind, id)
}

// ToggleUsernameEnabled sets whether a username filter entry is active.
func (s *Store) ToggleUsernameEnabled(ctx context.Context, id string, enabled bool) bool {
	return s.toggleItem(ctx, usernameKind, id, enabled)
}

// AddDropdownOption appends a new enabled copy action.
func (s *Store) AddDropdownOption(ctx context.Context, text, tmpl string) (DropdownOption, error) {
	text, tmpl, err := ValidateDropdownOption(text, tmpl)
	if err != nil {
		return DropdownOption{}, err
	}
	var added DropdownOption
	err = s.mutate(ctx, func(doc Settings) (Settings, error) {
		opts := doc.DropdownOptions()
		if lo.ContainsBy(opts, func(o DropdownOption) bool { return sameName(o.Text, text) }) {
			return nil, invalid(KeyDropdownOptions, "Option %q already exists", text)
		}
		added = DropdownOption{ID: s.ids.Next(), Text: text, Enabled: true, Template: tmpl}
		return Settings{KeyDropdownOptions: append(opts, added)}, nil
	})
	if err != nil {
		return DropdownOption{}, err
	}
	return added, nil
}

// EditDropdownOption replaces the text and template of a copy action.
func (s *Store) EditDropdownOption(ctx context.Context, id, text, tmpl string) error {
	text, tmpl, err := ValidateDropdownOption(text, tmpl)
	if err != nil {
		return err
	}
	return s.mutate(ctx, func(doc Settings) (Settings, error) {
		opts := doc.DropdownOptions()
		_, i, ok := lo.FindIndexOf(opts, func(o DropdownOption) bool { return o.ID == id })
		if !ok {
			return nil, fmt.Errorf("option %s: %w", id, ErrNotFound)
		}
		if lo.ContainsBy(opts, func(o DropdownOption) bool { return o.ID != id && sameName(o.Text, text) }) {
			return nil, invalid(KeyDropdownOptions, "Option %q already exists", text)
		}
		opts[i].Text = text
		opts[i].Template = tmpl
		return Settings{KeyDropdownOptions: opts}, nil
	})
}

// RemoveDropdownOption deletes a copy action.
func (s *Store) RemoveDropdownOption(ctx context.Context, id string) bool {
	err := s.mutate(ctx, func(doc Settings) (Settings, error) {
		opts := doc.DropdownOptions()
		if !lo.ContainsBy(opts, func(o DropdownOption) bool { return o.ID == id }) {
			return nil, ErrNotFound
		}
		return Settings{KeyDropdownOptions: lo.Reject(opts, func(o DropdownOption, _ int) bool { return o.ID == id })}, nil
	})
	return err == nil
}

// ToggleDropdownOption sets whether a copy action is shown.
func (s *Store) ToggleDropdownOption(ctx context.Context, id string, enabled bool) bool {
	err := s.mutate(ctx, func(doc Settings) (Settings, error) {
		opts := doc.DropdownOptions()
		_, i, ok := lo.FindIndexOf(opts, func(o DropdownOption) bool { return o.ID == id })
		if !ok {
			return nil, ErrNotFound
		}
		opts[i].Enabled = enabled
		return Settings{KeyDropdownOptions: opts}, nil
	})
	return err == nil
}

// ReorderDropdownOptions rewrites the option order. order must be a
// permutation of the current indices; the option at old index order[i]
// moves to position i.
func (s *Store) ReorderDropdownOptions(ctx context.Context, order []int) error {
	return s.mutate(ctx, func(doc Settings) (Settings, error) {
		opts := doc.DropdownOptions()
		if err := checkPermutation(order, len(opts)); err != nil {
			return nil, err
		}
		reordered := lo.Map(order, func(from int, _ int) DropdownOption { return opts[from] })
		return Settings{KeyDropdownOptions: reordered}, nil
	})
}

func checkPermutation(order []int, n int) error {
	if len(order) != n {
		return invalid(KeyDropdownOptions, "Order must list all %d options, got %d", n, len(order))
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n {
			return invalid(KeyDropdownOptions, "Index %d is out of range", idx)
		}
		if seen[idx] {
			return invalid(KeyDropdownOptions, "Index %d appears twice", idx)
		}
		seen[idx] = true
	}
	return nil
}

// FindDropdownOption returns the option whose id or text (case-insensitive)
// matches ref.
func FindDropdownOption(opts []DropdownOption, ref string) (DropdownOption, bool) {
	if o, ok := lo.Find(opts, func(o DropdownOption) bool { return o.ID == ref }); ok {
		return o, true
	}
	return lo.Find(opts, func(o DropdownOption) bool { return sameName(o.Text, ref) })
}
