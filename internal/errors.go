package internal

import "fmt"

// ArchiveError represents errors opening or extracting an export archive
type ArchiveError struct {
	Path string
	Op   string // "open", "extract", "traversal"
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// ParseError represents errors parsing a file inside an export
type ParseError struct {
	Source string // provider key
	Path   string // file path
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CatalogError represents errors reading or writing the vault catalog
type CatalogError struct {
	Op  string // "open", "migrate", "insert", "query"
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog error [%s]: %v", e.Op, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
