package usecase

import (
	"strings"

	"github.com/user/serp-rank-service/internal/entity"
)

const (
	reportFirstPageHeader  = "--- Page 1 ---"
	reportSecondPageHeader = "--- Page 2 ---"
	reportNotFoundHeader   = "--- Not Found ---"
)

// BuildReport renders the three buckets as the downloadable text report:
// first page, second page, not found, in that order, each term on its own
// line in classification order, sections separated by a blank line.
func BuildReport(b entity.Buckets) string {
	var sb strings.Builder
	writeSection(&sb, reportFirstPageHeader, b.FirstPage)
	sb.WriteString("\n\n")
	writeSection(&sb, reportSecondPageHeader, b.SecondPage)
	sb.WriteString("\n\n")
	writeSection(&sb, reportNotFoundHeader, b.NotFound)
	return sb.String()
}

func writeSection(sb *strings.Builder, header string, terms []entity.SearchTerm) {
	sb.WriteString(header)
	sb.WriteString("\n")
	for i, t := range terms {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t.Query())
	}
}
