// Package posting holds the job posting value object and the ordered corpus.
package posting

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/jobrec/internal/domain"
)

// Experience levels after normalization of the raw dataset labels.
const (
	LevelJunior = "junior"
	LevelPleno  = "pleno"
	LevelSenior = "senior"
	LevelNA     = "na"
)

var experienceLevels = map[string]string{
	"entry level":      LevelJunior,
	"associate":        LevelPleno,
	"mid-senior level": LevelSenior,
	"director":         LevelSenior,
	"executive":        LevelSenior,
}

// NormalizeExperience maps a raw experience label to junior, pleno, senior or na.
func NormalizeExperience(raw string) string {
	if lvl, ok := experienceLevels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return lvl
	}
	return LevelNA
}

// IsValidLevel reports whether lvl is one of the normalized experience levels.
func IsValidLevel(lvl string) bool {
	switch lvl {
	case LevelJunior, LevelPleno, LevelSenior, LevelNA:
		return true
	}
	return false
}

// Fields carries the raw attributes of a job posting as read by ingestion.
type Fields struct {
	ID          string
	Title       string
	Company     string
	Location    string
	URL         string
	Description string
	Skills      string
	Experience  string
	Remote      bool
	Salary      *float64
}

// Posting is one job posting (immutable value object).
type Posting struct {
	id          string
	title       string
	company     string
	location    string
	url         string
	description string
	skills      string
	experience  string
	remote      bool
	salary      *float64
	normalized  string
}

// New validates raw fields and creates a Posting.
// The experience label is normalized; an already normalized level is kept as is.
func New(f Fields) (Posting, error) {
	id := strings.TrimSpace(f.ID)
	if id == "" {
		return Posting{}, fmt.Errorf("%w: posting ID is required", domain.ErrData)
	}
	lvl := f.Experience
	if !IsValidLevel(lvl) {
		lvl = NormalizeExperience(lvl)
	}
	var salary *float64
	if f.Salary != nil && *f.Salary > 0 {
		v := *f.Salary
		salary = &v
	}
	return Posting{
		id:          id,
		title:       strings.TrimSpace(f.Title),
		company:     strings.TrimSpace(f.Company),
		location:    strings.TrimSpace(f.Location),
		url:         strings.TrimSpace(f.URL),
		description: f.Description,
		skills:      f.Skills,
		experience:  lvl,
		remote:      f.Remote,
		salary:      salary,
	}, nil
}

// Reconstruct creates a Posting without validation (storage hydration).
func Reconstruct(f Fields, normalized string) Posting {
	return Posting{
		id: f.ID, title: f.Title, company: f.Company, location: f.Location, url: f.URL,
		description: f.Description, skills: f.Skills, experience: f.Experience,
		remote: f.Remote, salary: f.Salary, normalized: normalized,
	}
}

// ID returns the dataset job identifier.
func (p *Posting) ID() string { return p.id }

// Title returns the job title.
func (p *Posting) Title() string { return p.title }

// Company returns the hiring company name.
func (p *Posting) Company() string { return p.company }

// Location returns the job location.
func (p *Posting) Location() string { return p.location }

// URL returns the original posting link.
func (p *Posting) URL() string { return p.url }

// Description returns the raw job description.
func (p *Posting) Description() string { return p.description }

// Skills returns the structured skills text joined from the skills tables.
func (p *Posting) Skills() string { return p.skills }

// Experience returns the normalized experience level.
func (p *Posting) Experience() string { return p.experience }

// Remote reports whether remote work is allowed.
func (p *Posting) Remote() bool { return p.remote }

// Salary returns the annual salary, or false when absent.
func (p *Posting) Salary() (float64, bool) {
	if p.salary == nil {
		return 0, false
	}
	return *p.salary, true
}

// Normalized returns the normalized text the vector space was fit on.
func (p *Posting) Normalized() string { return p.normalized }

// Text returns the raw text fields that feed the vector space, in fit order.
func (p *Posting) Text() []string {
	return []string{p.title, p.description, p.skills}
}

// Fields returns a copy of the raw attributes.
func (p *Posting) Fields() Fields {
	f := Fields{
		ID: p.id, Title: p.title, Company: p.company, Location: p.location, URL: p.url,
		Description: p.description, Skills: p.skills, Experience: p.experience, Remote: p.remote,
	}
	if p.salary != nil {
		v := *p.salary
		f.Salary = &v
	}
	return f
}

// WithNormalized returns a copy with the normalized text set.
func (p *Posting) WithNormalized(text string) Posting {
	cp := *p
	cp.normalized = text
	return cp
}
