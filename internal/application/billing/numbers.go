package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document number prefixes
const (
	quoteNumberPrefix   = "QUO"
	invoiceNumberPrefix = "INV"
)

// generateDocumentNumber builds a document number like INV-20260830-4F2A9C1B.
// Uniqueness is still enforced by the repository's number index; the random
// suffix just makes collisions improbable without a counter table.
func generateDocumentNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), suffix)
}
