// Package repository implements the data access layer for the application.
package repository

import (
	"fmt"
	"strings"

	"lcnetwork/internal/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxPerPage caps any requested page size.
const MaxPerPage = 100

// Page selects one window of an ordered listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps a requested page. Non-positive sizes fall back to defaultSize.
func NewPage(number, size, defaultSize int) Page {
	if number < 1 {
		number = 1
	}
	if size <= 0 {
		size = defaultSize
	}
	if size <= 0 {
		size = 20
	}
	if size > MaxPerPage {
		size = MaxPerPage
	}
	return Page{Number: number, Size: size}
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	return db.Limit(p.Size).Offset(p.Offset())
}

// readDB routes reads to the replica when one is configured. Reads inside a
// transaction stay on the transaction.
func readDB(primary *gorm.DB) *gorm.DB {
	if primary.Statement != nil {
		if _, inTx := primary.Statement.ConnPool.(gorm.TxCommitter); inTx {
			return primary
		}
	}
	if database.ReadDB != nil {
		return database.ReadDB
	}
	return primary
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505; sqlite reports "UNIQUE constraint failed"
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// counterColumns are the denormalized counters that may be adjusted in place.
var counterColumns = map[string]bool{
	"like_count":    true,
	"comment_count": true,
	"share_count":   true,
	"report_count":  true,
	"warning_count": true,
}

// adjustCounter returns an expression adding delta to column. Decrements
// never take the counter below zero.
func adjustCounter(column string, delta int) clause.Expr {
	if !counterColumns[column] {
		panic(fmt.Sprintf("repository: %q is not a counter column", column))
	}
	if delta >= 0 {
		return gorm.Expr(column+" + ?", delta)
	}
	n := -delta
	return gorm.Expr("CASE WHEN "+column+" > ? THEN "+column+" - ? ELSE 0 END", n, n)
}
