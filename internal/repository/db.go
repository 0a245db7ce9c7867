package repository

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository can run
// standalone or inside a caller-owned transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

// Page is a 1-based page request.
type Page struct {
	Page     int
	PageSize int
}

// maxPage keeps (page-1)*size far below overflow for any client value.
const maxPage = 100000

// NewPage clamps raw query values: page defaults to 1 and is capped at
// maxPage, size defaults to 20 and is capped at 100.
func NewPage(page, size int) Page {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return Page{Page: page, PageSize: size}
}

// Offset is the SQL OFFSET for the page.  A Page built without NewPage is
// clamped the same way first.
func (p Page) Offset() int {
	c := NewPage(p.Page, p.PageSize)
	return (c.Page - 1) * c.PageSize
}
