// Package render fills the recipient placeholder in template text.
package render

import (
	"strings"

	"github.com/automail/automail/internal/model"
)

// CompanyToken is the only placeholder recognized in subjects and bodies.
const CompanyToken = "{{company}}"

// Render replaces every occurrence of CompanyToken in text with the
// recipient's company name. The replacement is inserted verbatim.
func Render(text string, r model.Recipient) string {
	return strings.ReplaceAll(text, CompanyToken, r.Company)
}
