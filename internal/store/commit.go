package store

import (
	"database/sql"
	"fmt"

	"github.com/jward/testscope/internal/javasrc"
)

// CommitFacts inserts everything extracted from one file within a single
// transaction. Classes arrive in source pre-order, so an enclosing class is
// always inserted before the classes nested in it and parent_class_id can be
// filled from the IDs assigned so far.
//
// Insert order respects FK dependencies:
//  1. Imports (depend on file_id only)
//  2. Classes (depend on file_id, parent_class_id)
//  3. Methods (depend on class_id)
//  4. Parameters (depend on method_id)
func (s *Store) CommitFacts(fileID int64, facts *javasrc.FileFacts) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit facts: begin: %w", err)
	}
	defer tx.Rollback()

	if err := commitFactsTx(tx, fileID, facts); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit facts: %w", err)
	}
	return nil
}

// ReplaceFile stores f and its facts in one transaction, first removing
// the file already stored at f.Path along with everything extracted from
// it. On error the previous contents are left as they were. On success
// f.ID is set.
func (s *Store) ReplaceFile(f *File, facts *javasrc.FileFacts) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("replace file: begin: %w", err)
	}
	defer tx.Rollback()

	var oldID int64
	err = tx.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&oldID)
	switch {
	case err == nil:
		if err := deleteFileDataTx(tx, oldID); err != nil {
			return 0, fmt.Errorf("replace file %s: %w", f.Path, err)
		}
	case err != sql.ErrNoRows:
		return 0, fmt.Errorf("replace file %s: %w", f.Path, err)
	}

	id, err := insertFile(tx, f)
	if err != nil {
		return 0, err
	}
	if err := commitFactsTx(tx, id, facts); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("replace file %s: %w", f.Path, err)
	}
	f.ID = id
	return id, nil
}

func commitFactsTx(tx *sql.Tx, fileID int64, facts *javasrc.FileFacts) error {
	for _, imp := range facts.Imports {
		if _, err := tx.Exec(
			"INSERT INTO imports (file_id, path, is_static, is_wildcard) VALUES (?, ?, ?, ?)",
			fileID, imp.Path, imp.Static, imp.Wildcard,
		); err != nil {
			return fmt.Errorf("commit facts: import %q: %w", imp.Path, err)
		}
	}

	classIDs := make(map[string]int64, len(facts.Classes))
	for i := range facts.Classes {
		c := &facts.Classes[i]
		var parent *int64
		if c.Enclosing != "" {
			id, ok := classIDs[c.Enclosing]
			if !ok {
				return fmt.Errorf("commit facts: class %q: enclosing %q not committed", c.QualifiedName, c.Enclosing)
			}
			parent = &id
		}
		classID, err := insertClassTx(tx, fileID, c, parent)
		if err != nil {
			return fmt.Errorf("commit facts: class %q: %w", c.QualifiedName, err)
		}
		classIDs[c.QualifiedName] = classID

		for j := range c.Methods {
			m := &c.Methods[j]
			methodID, err := insertMethodTx(tx, fileID, classID, m)
			if err != nil {
				return fmt.Errorf("commit facts: method %s.%s: %w", c.Name, m.Name, err)
			}
			for ord, p := range m.Params {
				if err := insertParameterTx(tx, methodID, ord, p); err != nil {
					return fmt.Errorf("commit facts: parameter %s of %s.%s: %w", p.Name, c.Name, m.Name, err)
				}
			}
		}
	}
	return nil
}

func insertClassTx(tx *sql.Tx, fileID int64, c *javasrc.Class, parent *int64) (int64, error) {
	var superExpr, superBase string
	if c.Superclass != nil {
		superExpr, superBase = c.Superclass.Expr, c.Superclass.Base
	}
	res, err := tx.Exec(
		`INSERT INTO classes (file_id, name, qualified_name, kind, modifiers, type_params,
			superclass_expr, superclass_base, signature_hash, parent_class_id,
			start_byte, end_byte, start_line, end_line)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fileID, c.Name, c.QualifiedName, c.Kind, marshalList(c.Modifiers), marshalList(c.TypeParams),
		superExpr, superBase, ComputeSignatureHash(c), parent,
		c.Span.StartByte, c.Span.EndByte, c.Span.StartLine, c.Span.EndLine,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertMethodTx(tx *sql.Tx, fileID, classID int64, m *javasrc.Method) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO methods (class_id, file_id, name, modifiers, type_params,
			is_constructor, has_body, body_empty, return_expr, return_base, return_dims, return_prim,
			start_byte, end_byte, start_line, end_line)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		classID, fileID, m.Name, marshalList(m.Modifiers), marshalList(m.TypeParams),
		m.IsConstructor, m.HasBody, m.BodyEmpty, m.Return.Expr, m.Return.Base, m.Return.Dimensions, m.Return.Primitive,
		m.Span.StartByte, m.Span.EndByte, m.Span.StartLine, m.Span.EndLine,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertParameterTx(tx *sql.Tx, methodID int64, ordinal int, p javasrc.Param) error {
	_, err := tx.Exec(
		`INSERT INTO parameters (method_id, name, ordinal, type_expr, base_type, dimensions, is_primitive, is_varargs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		methodID, p.Name, ordinal, p.Type.Expr, p.Type.Base, p.Type.Dimensions, p.Type.Primitive, p.Varargs,
	)
	return err
}
