package store

import "time"

// Extraction domain types

type File struct {
	ID          int64
	Path        string
	Language    string
	Package     string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

type Import struct {
	ID       int64
	FileID   int64
	Path     string
	Static   bool
	Wildcard bool
}

type Class struct {
	ID             int64
	FileID         int64
	Name           string
	QualifiedName  string
	Kind           string
	Modifiers      []string
	TypeParams     []string
	SuperclassExpr string
	SuperclassBase string
	SignatureHash  string
	ParentClassID  *int64
	StartByte      int
	EndByte        int
	StartLine      int
	EndLine        int
	ResolvedSuper  *string
}

type Method struct {
	ID            int64
	ClassID       int64
	FileID        int64
	Name          string
	Modifiers     []string
	TypeParams    []string
	IsConstructor bool
	HasBody       bool
	BodyEmpty     bool
	ReturnExpr    string
	ReturnBase    string
	ReturnDims    int
	ReturnPrim    bool
	ResolvedRet   *string
	StartByte     int
	EndByte       int
	StartLine     int
	EndLine       int
}

type Parameter struct {
	ID           int64
	MethodID     int64
	Name         string
	Ordinal      int
	TypeExpr     string
	BaseType     string
	Dimensions   int
	Primitive    bool
	Varargs      bool
	ResolvedType *string
}
