package store

import "fmt"

// Resolutions maps row IDs to the qualified names their type references
// resolved to. An empty string records "unresolvable".
type Resolutions struct {
	Superclasses map[int64]string
	Returns      map[int64]string
	Parameters   map[int64]string
}

// NewResolutions returns an empty Resolutions ready for filling.
func NewResolutions() *Resolutions {
	return &Resolutions{
		Superclasses: make(map[int64]string),
		Returns:      make(map[int64]string),
		Parameters:   make(map[int64]string),
	}
}

// ApplyResolutions clears all previous resolution results and writes r in a
// single transaction.
func (s *Store) ApplyResolutions(r *Resolutions) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("apply resolutions: begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"UPDATE classes SET resolved_super = NULL",
		"UPDATE methods SET resolved_return = NULL",
		"UPDATE parameters SET resolved_type = NULL",
	} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("apply resolutions: reset: %w", err)
		}
	}

	updates := []struct {
		label string
		query string
		vals  map[int64]string
	}{
		{"superclass", "UPDATE classes SET resolved_super = ? WHERE id = ?", r.Superclasses},
		{"return", "UPDATE methods SET resolved_return = ? WHERE id = ?", r.Returns},
		{"parameter", "UPDATE parameters SET resolved_type = ? WHERE id = ?", r.Parameters},
	}
	for _, u := range updates {
		stmt, err := tx.Prepare(u.query)
		if err != nil {
			return fmt.Errorf("apply resolutions: prepare %s: %w", u.label, err)
		}
		for id, name := range u.vals {
			if name == "" {
				continue
			}
			if _, err := stmt.Exec(name, id); err != nil {
				stmt.Close()
				return fmt.Errorf("apply resolutions: %s %d: %w", u.label, id, err)
			}
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply resolutions: %w", err)
	}
	return nil
}

// AllParameters returns every indexed parameter ordered by method then
// ordinal.
func (s *Store) AllParameters() ([]*Parameter, error) {
	params, err := s.queryParameters("SELECT " + paramCols + " FROM parameters ORDER BY method_id, ordinal")
	if err != nil {
		return nil, fmt.Errorf("all parameters: %w", err)
	}
	return params, nil
}

// AllImports returns every import keyed by file ID.
func (s *Store) AllImports() (map[int64][]*Import, error) {
	rows, err := s.db.Query("SELECT id, file_id, path, is_static, is_wildcard FROM imports ORDER BY file_id, id")
	if err != nil {
		return nil, fmt.Errorf("all imports: %w", err)
	}
	defer rows.Close()
	result := make(map[int64][]*Import)
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.FileID, &imp.Path, &imp.Static, &imp.Wildcard); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		result[imp.FileID] = append(result[imp.FileID], imp)
	}
	return result, rows.Err()
}

// nullString converts a nullable column value into a plain string.
func nullString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
