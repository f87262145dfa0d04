// Package corpus loads job postings from CSV exports, Postgres or a
// previously published parquet corpus.
package corpus

import (
	"context"
	"strings"

	"github.com/kailas-cloud/jobrec/internal/domain/posting"
)

// Source loads the posting corpus in canonical order.
type Source interface {
	Load(ctx context.Context) (posting.Corpus, error)
}

// Column names recognized in postings exports.
const (
	colTitle       = "title"
	colCompany     = "company_name"
	colLocation    = "location"
	colURL         = "job_posting_url"
	colDescription = "description"
	colSkillsDesc  = "skills_desc"
	colSkills      = "skills"
	colExperience  = "formatted_experience_level"
	colRemote      = "remote_allowed"
	colNormSalary  = "normalized_salary"
	colMedSalary   = "med_salary"
	colMinSalary   = "min_salary"
	colMaxSalary   = "max_salary"
	colPayPeriod   = "pay_period"
	idMarker       = "job_id"
)

// columns maps a header row to field positions. Headers are matched
// case-insensitively after trimming spaces and a UTF-8 BOM; the first column
// whose name contains "job_id" is the id.
type columns struct {
	id  int
	pos map[string]int
}

func newColumns(header []string) (columns, bool) {
	c := columns{id: -1, pos: make(map[string]int, len(header))}
	for i, h := range header {
		name := cleanHeader(h)
		if _, dup := c.pos[name]; !dup {
			c.pos[name] = i
		}
		if c.id < 0 && strings.Contains(name, idMarker) {
			c.id = i
		}
	}
	return c, c.id >= 0
}

func cleanHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func (c columns) get(record []string, name string) string {
	i, ok := c.pos[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// fields builds posting fields from one record.
func (c columns) fields(record []string) posting.Fields {
	var id string
	if c.id < len(record) {
		id = strings.TrimSpace(record[c.id])
	}
	return posting.Fields{
		ID:          id,
		Title:       c.get(record, colTitle),
		Company:     c.get(record, colCompany),
		Location:    c.get(record, colLocation),
		URL:         c.get(record, colURL),
		Description: c.get(record, colDescription),
		Skills:      joinNonEmpty(c.get(record, colSkillsDesc), c.get(record, colSkills)),
		Experience:  posting.NormalizeExperience(c.get(record, colExperience)),
		Remote:      parseBool(c.get(record, colRemote)),
		Salary:      c.salary(record),
	}
}

// salary prefers an explicit normalized_salary, then derives an annual
// figure from med/min/max and pay_period.
func (c columns) salary(record []string) *float64 {
	if v := posting.ParseAmount(c.get(record, colNormSalary)); v != nil {
		return v
	}
	amount := posting.ParseAmount(c.get(record, colMedSalary))
	if amount == nil {
		lo := posting.ParseAmount(c.get(record, colMinSalary))
		hi := posting.ParseAmount(c.get(record, colMaxSalary))
		switch {
		case lo != nil && hi != nil:
			mid := (*lo + *hi) / 2
			amount = &mid
		case hi != nil:
			amount = hi
		default:
			amount = lo
		}
	}
	return posting.NormalizeSalary(amount, c.get(record, colPayPeriod))
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "1.0", "true", "t", "yes", "y":
		return true
	}
	return false
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
