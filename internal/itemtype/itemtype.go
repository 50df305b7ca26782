// Package itemtype implements the Type Registry (C1): the set of item
// types and the field schemas each one permits.
package itemtype

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/shirokuma-kb/shirokuma/internal/database"
	"github.com/shirokuma-kb/shirokuma/internal/logging"
)

var log = logging.GetLogger("itemtype")

var nameRE = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const (
	minNameLen = 1
	maxNameLen = 50
)

// FieldSchema is the set of fields an item of a given type may carry.
// Name and BaseType: immutable once assigned.
type FieldSchema struct {
	TypeName string
	BaseType string
	Fields   map[string]bool
}

// Allows reports whether field is permitted on items of this type.
func (s FieldSchema) Allows(field string) bool {
	return s.Fields[field]
}

var commonFields = []string{"id", "title", "description", "tags", "related", "createdAt", "updatedAt"}

var baseTypeFields = map[string][]string{
	"tasks":     {"content", "priority", "statusId", "startDate", "endDate"},
	"documents": {"content", "priority", "statusId"},
}

// Registry is the Type Registry. Reads are served from an in-memory cache
// invalidated by a generation counter bumped on every write, per the
// read-mostly caching policy of the concurrency model.
type Registry struct {
	db *database.Database

	mu         sync.RWMutex
	generation uint64
	cache      map[string]database.TypeDefinition
	cacheGen   uint64
}

// New constructs a Registry over db. Does not seed; seeding happens in
// database.InitSchema.
func New(db *database.Database) *Registry {
	return &Registry{db: db}
}

func (r *Registry) invalidate() {
	r.mu.Lock()
	r.generation++
	r.cache = nil
	r.mu.Unlock()
}

func (r *Registry) loadCache() (map[string]database.TypeDefinition, error) {
	r.mu.RLock()
	if r.cache != nil && r.cacheGen == r.generation {
		cache := r.cache
		r.mu.RUnlock()
		return cache, nil
	}
	r.mu.RUnlock()

	defs, err := database.ListTypeDefinitions(r.db, "")
	if err != nil {
		return nil, err
	}

	cache := make(map[string]database.TypeDefinition, len(defs))
	for _, d := range defs {
		cache[d.Name] = d
	}

	r.mu.Lock()
	r.cache = cache
	r.cacheGen = r.generation
	r.mu.Unlock()

	return cache, nil
}

// ErrInvalidName indicates a type name fails the `^[a-z][a-z0-9_]*$` regex
// or the 1-50 character length bound.
type ErrInvalidName struct {
	Name string
}

func (e ErrInvalidName) Error() string {
	return fmt.Sprintf("invalid type name %q: must match ^[a-z][a-z0-9_]*$ and be 1-50 characters", e.Name)
}

// ErrInvalidBaseType indicates baseType is not one of the fixed base
// types.
type ErrInvalidBaseType struct {
	BaseType string
}

func (e ErrInvalidBaseType) Error() string {
	return fmt.Sprintf("invalid base type %q: must be one of %v", e.BaseType, database.BaseTypes)
}

// ErrAlreadyExists indicates a type with this name is already registered.
type ErrAlreadyExists struct {
	Name string
}

func (e ErrAlreadyExists) Error() string {
	return fmt.Sprintf("type %q already exists", e.Name)
}

// ErrInUse indicates removal was blocked because items still reference
// this type.
type ErrInUse struct {
	Name  string
	Count int
}

func (e ErrInUse) Error() string {
	return fmt.Sprintf("type %q is in use by %d item(s)", e.Name, e.Count)
}

// ErrNotFound indicates no type with this name is registered.
type ErrNotFound struct {
	Name string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("type %q not found", e.Name)
}

func validateName(name string) error {
	if len(name) < minNameLen || len(name) > maxNameLen || !nameRE.MatchString(name) {
		return ErrInvalidName{Name: name}
	}
	return nil
}

// Register adds a new type definition.
func (r *Registry) Register(name, baseType, description string) (database.TypeDefinition, error) {
	if err := validateName(name); err != nil {
		return database.TypeDefinition{}, err
	}
	if !database.IsValidBaseType(baseType) {
		return database.TypeDefinition{}, ErrInvalidBaseType{BaseType: baseType}
	}
	if _, err := database.GetTypeDefinition(r.db, name); err == nil {
		return database.TypeDefinition{}, ErrAlreadyExists{Name: name}
	}

	def := database.TypeDefinition{Name: name, BaseType: baseType, Description: description}
	if err := database.CreateTypeDefinition(r.db, def); err != nil {
		return database.TypeDefinition{}, err
	}
	r.invalidate()
	log.Info("registered item type", "name", name, "base_type", baseType)
	return def, nil
}

// Get looks up a type by name.
func (r *Registry) Get(name string) (database.TypeDefinition, error) {
	cache, err := r.loadCache()
	if err != nil {
		return database.TypeDefinition{}, err
	}
	def, ok := cache[name]
	if !ok {
		return database.TypeDefinition{}, ErrNotFound{Name: name}
	}
	return def, nil
}

// UpdateDescription changes a type's description, leaving name and base type
// untouched. Fails with ErrNotFound if name isn't registered.
func (r *Registry) UpdateDescription(name, description string) (database.TypeDefinition, error) {
	if _, err := r.Get(name); err != nil {
		return database.TypeDefinition{}, err
	}
	if err := database.UpdateTypeDefinition(r.db, name, description); err != nil {
		return database.TypeDefinition{}, err
	}
	r.invalidate()
	log.Info("updated item type description", "name", name)
	return r.Get(name)
}

// List returns every registered type, optionally filtered by base type.
func (r *Registry) List(baseType string) ([]database.TypeDefinition, error) {
	cache, err := r.loadCache()
	if err != nil {
		return nil, err
	}
	defs := make([]database.TypeDefinition, 0, len(cache))
	for _, d := range cache {
		if baseType != "" && d.BaseType != baseType {
			continue
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// Remove deletes a type definition. Fails with ErrInUse if any item
// still carries it, and is forbidden for the reserved seed types.
func (r *Registry) Remove(name string) error {
	for _, seed := range reservedSeedTypes {
		if seed == name {
			return fmt.Errorf("type %q is a reserved built-in type and cannot be removed", name)
		}
	}
	count, err := database.TypeInUseCount(r.db, name)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrInUse{Name: name, Count: count}
	}
	if err := database.DeleteTypeDefinition(r.db, name); err != nil {
		return err
	}
	r.invalidate()
	log.Info("removed item type", "name", name)
	return nil
}

var reservedSeedTypes = []string{"issues", "plans", "docs", "knowledge", "sessions", "decisions"}

// FieldsFor returns the allowed field set for a type: the common fields
// plus its base type's fields.
func (r *Registry) FieldsFor(name string) (FieldSchema, error) {
	def, err := r.Get(name)
	if err != nil {
		return FieldSchema{}, err
	}

	fields := make(map[string]bool, len(commonFields)+5)
	for _, f := range commonFields {
		fields[f] = true
	}
	for _, f := range baseTypeFields[def.BaseType] {
		fields[f] = true
	}

	return FieldSchema{TypeName: def.Name, BaseType: def.BaseType, Fields: fields}, nil
}
