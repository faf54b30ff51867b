package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxNumberAttempts bounds the draws of a fresh invoice number after a unique-key collision.
const maxNumberAttempts = 3

// newInvoiceNumber returns FACT-<yyyymmdd>-<8 hex>.
func newInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "FACT-" + now.Format("20060102") + "-" + suffix
}
