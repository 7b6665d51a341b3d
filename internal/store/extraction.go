package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	id, err := insertFile(s.db, f)
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

func insertFile(db execer, f *File) (int64, error) {
	res, err := db.Exec(
		"INSERT INTO files (path, language, package, hash, line_count, last_indexed) VALUES (?, ?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Package, f.Hash, f.LineCount, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

const fileCols = `id, path, language, package, hash, line_count, last_indexed`

func scanFile(sc scanner) (*File, error) {
	f := &File{}
	return f, sc.Scan(&f.ID, &f.Path, &f.Language, &f.Package, &f.Hash, &f.LineCount, &f.LastIndexed)
}

func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Import operations ---

func (s *Store) ImportsByFile(fileID int64) ([]*Import, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, path, is_static, is_wildcard FROM imports WHERE file_id = ? ORDER BY id", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	defer rows.Close()
	var imports []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.FileID, &imp.Path, &imp.Static, &imp.Wildcard); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// --- Class operations ---

// ClassCols is the column list for class queries.
const ClassCols = `id, file_id, name, qualified_name, kind, modifiers, type_params,
	superclass_expr, superclass_base, signature_hash, parent_class_id,
	start_byte, end_byte, start_line, end_line, resolved_super`

func scanClass(sc scanner) (*Class, error) {
	c := &Class{}
	var mods, tparams string
	err := sc.Scan(
		&c.ID, &c.FileID, &c.Name, &c.QualifiedName, &c.Kind, &mods, &tparams,
		&c.SuperclassExpr, &c.SuperclassBase, &c.SignatureHash, &c.ParentClassID,
		&c.StartByte, &c.EndByte, &c.StartLine, &c.EndLine, &c.ResolvedSuper,
	)
	if err != nil {
		return nil, err
	}
	c.Modifiers = unmarshalList(mods)
	c.TypeParams = unmarshalList(tparams)
	return c, nil
}

func (s *Store) queryClasses(query string, args ...any) ([]*Class, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var classes []*Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// ClassesByFile returns a file's classes in source order.
func (s *Store) ClassesByFile(fileID int64) ([]*Class, error) {
	classes, err := s.queryClasses("SELECT "+ClassCols+" FROM classes WHERE file_id = ? ORDER BY start_byte", fileID)
	if err != nil {
		return nil, fmt.Errorf("classes by file: %w", err)
	}
	return classes, nil
}

// AllClasses returns every indexed class ordered by file then position.
func (s *Store) AllClasses() ([]*Class, error) {
	classes, err := s.queryClasses("SELECT " + ClassCols + " FROM classes ORDER BY file_id, start_byte")
	if err != nil {
		return nil, fmt.Errorf("all classes: %w", err)
	}
	return classes, nil
}

// QualifiedNames returns the set of indexed qualified class names.
func (s *Store) QualifiedNames() (map[string]bool, error) {
	rows, err := s.db.Query("SELECT DISTINCT qualified_name FROM classes")
	if err != nil {
		return nil, fmt.Errorf("qualified names: %w", err)
	}
	defer rows.Close()
	names := make(map[string]bool)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan qualified name: %w", err)
		}
		names[n] = true
	}
	return names, rows.Err()
}

// --- Method operations ---

const methodCols = `id, class_id, file_id, name, modifiers, type_params,
	is_constructor, has_body, body_empty, return_expr, return_base, return_dims,
	return_prim, resolved_return, start_byte, end_byte, start_line, end_line`

func scanMethod(sc scanner) (*Method, error) {
	m := &Method{}
	var mods, tparams string
	err := sc.Scan(
		&m.ID, &m.ClassID, &m.FileID, &m.Name, &mods, &tparams,
		&m.IsConstructor, &m.HasBody, &m.BodyEmpty, &m.ReturnExpr, &m.ReturnBase, &m.ReturnDims,
		&m.ReturnPrim, &m.ResolvedRet, &m.StartByte, &m.EndByte, &m.StartLine, &m.EndLine,
	)
	if err != nil {
		return nil, err
	}
	m.Modifiers = unmarshalList(mods)
	m.TypeParams = unmarshalList(tparams)
	return m, nil
}

func (s *Store) queryMethods(query string, args ...any) ([]*Method, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var methods []*Method
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// AllMethods returns every indexed method ordered by class then position.
func (s *Store) AllMethods() ([]*Method, error) {
	methods, err := s.queryMethods("SELECT " + methodCols + " FROM methods ORDER BY class_id, start_byte")
	if err != nil {
		return nil, fmt.Errorf("all methods: %w", err)
	}
	return methods, nil
}

// --- Parameter operations ---

const paramCols = `id, method_id, name, ordinal, type_expr, base_type, dimensions,
	is_primitive, is_varargs, resolved_type`

func scanParameter(sc scanner) (*Parameter, error) {
	p := &Parameter{}
	return p, sc.Scan(
		&p.ID, &p.MethodID, &p.Name, &p.Ordinal, &p.TypeExpr, &p.BaseType, &p.Dimensions,
		&p.Primitive, &p.Varargs, &p.ResolvedType,
	)
}

func (s *Store) queryParameters(query string, args ...any) ([]*Parameter, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var params []*Parameter
	for rows.Next() {
		p, err := scanParameter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan parameter: %w", err)
		}
		params = append(params, p)
	}
	return params, rows.Err()
}
