package jobrec

import (
	"time"

	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
	recommenduc "github.com/kailas-cloud/jobrec/internal/usecase/recommend"
)

// Experience levels accepted by Filter.ExperienceLevels.
const (
	LevelJunior = posting.LevelJunior
	LevelPleno  = posting.LevelPleno
	LevelSenior = posting.LevelSenior
	LevelNA     = posting.LevelNA
)

// Posting is one job posting. Experience may be a raw label such as
// "Mid-Senior level"; Build maps it to a level.
type Posting struct {
	ID          string
	Title       string
	Company     string
	Location    string
	URL         string
	Description string
	Skills      string
	Experience  string
	Remote      bool
	Salary      *float64 // annual, nil when unknown
}

// Recommendation is one ranked posting. Index is the posting's row in the
// corpus the artifact was built from.
type Recommendation struct {
	Rank    int
	Index   int
	Score   float64
	Posting Posting
}

// Recommendations is the answer to one query.
// NoMatches is set when the text shares no term with the vocabulary.
type Recommendations struct {
	Version   string
	NoMatches bool
	Items     []Recommendation
}

// Filter restricts which postings may be recommended. The zero value keeps
// everything.
type Filter struct {
	ExperienceLevels []string
	MinSalary        *float64
	RemoteOnly       bool
	MinScore         float64
}

// Manifest describes a published artifact.
type Manifest struct {
	Version   string
	CreatedAt time.Time
	Postings  int
	Terms     int
	NonZeros  int
}

func fromDomainPosting(p posting.Posting) Posting {
	f := p.Fields()
	return Posting{
		ID:          f.ID,
		Title:       f.Title,
		Company:     f.Company,
		Location:    f.Location,
		URL:         f.URL,
		Description: f.Description,
		Skills:      f.Skills,
		Experience:  f.Experience,
		Remote:      f.Remote,
		Salary:      f.Salary,
	}
}

func toDomainPosting(p Posting) (posting.Posting, error) {
	return posting.New(posting.Fields{
		ID:          p.ID,
		Title:       p.Title,
		Company:     p.Company,
		Location:    p.Location,
		URL:         p.URL,
		Description: p.Description,
		Skills:      p.Skills,
		Experience:  p.Experience,
		Remote:      p.Remote,
		Salary:      p.Salary,
	})
}

func fromResponse(resp recommenduc.Response) Recommendations {
	out := Recommendations{
		Version:   resp.Version,
		NoMatches: resp.NoMatches,
		Items:     make([]Recommendation, 0, len(resp.Results)),
	}
	for _, r := range resp.Results {
		out.Items = append(out.Items, Recommendation{
			Rank:    r.Rank(),
			Index:   r.Index(),
			Score:   r.Score(),
			Posting: fromDomainPosting(r.Posting()),
		})
	}
	return out
}

func fromManifest(m artifact.Manifest) Manifest {
	return Manifest{Version: m.Version, CreatedAt: m.CreatedAt, Postings: m.Rows, Terms: m.Cols, NonZeros: m.NNZ}
}
