package database

import (
	"database/sql"
	"fmt"
)

// CreateTypeDefinition registers a new item type.
func CreateTypeDefinition(ex Execer, def TypeDefinition) error {
	_, err := ex.Exec(
		"INSERT INTO type_definitions (name, base_type, description) VALUES (?, ?, ?)",
		def.Name, def.BaseType, nullString(def.Description),
	)
	if err != nil {
		return fmt.Errorf("creating type %q: %w", def.Name, err)
	}
	return nil
}

// GetTypeDefinition looks up a registered type by name. Returns
// sql.ErrNoRows if absent.
func GetTypeDefinition(ex Execer, name string) (*TypeDefinition, error) {
	var def TypeDefinition
	var description sql.NullString
	err := ex.QueryRow(
		"SELECT name, base_type, description FROM type_definitions WHERE name = ?",
		name,
	).Scan(&def.Name, &def.BaseType, &description)
	if err != nil {
		return nil, err
	}
	def.Description = description.String
	return &def, nil
}

// ListTypeDefinitions returns every registered type, optionally filtered by
// base type.
func ListTypeDefinitions(ex Execer, baseType string) ([]TypeDefinition, error) {
	query := "SELECT name, base_type, description FROM type_definitions"
	args := []interface{}{}
	if baseType != "" {
		query += " WHERE base_type = ?"
		args = append(args, baseType)
	}
	query += " ORDER BY name"

	rows, err := ex.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing type definitions: %w", err)
	}
	defer rows.Close()

	var defs []TypeDefinition
	for rows.Next() {
		var def TypeDefinition
		var description sql.NullString
		if err := rows.Scan(&def.Name, &def.BaseType, &description); err != nil {
			return nil, err
		}
		def.Description = description.String
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// UpdateTypeDefinition changes a type's description. Name and base type are
// immutable once registered; changing base type would invalidate existing
// items' field sets.
func UpdateTypeDefinition(ex Execer, name, description string) error {
	res, err := ex.Exec(
		"UPDATE type_definitions SET description = ? WHERE name = ?",
		nullString(description), name,
	)
	if err != nil {
		return fmt.Errorf("updating type %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteTypeDefinition removes a registered type. Callers must check
// TypeInUseCount first.
func DeleteTypeDefinition(ex Execer, name string) error {
	_, err := ex.Exec("DELETE FROM type_definitions WHERE name = ?", name)
	return err
}

// TypeInUseCount returns how many items currently use this type.
func TypeInUseCount(ex Execer, name string) (int, error) {
	var count int
	err := ex.QueryRow("SELECT COUNT(*) FROM items WHERE type = ?", name).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting type usage: %w", err)
	}
	return count, nil
}
