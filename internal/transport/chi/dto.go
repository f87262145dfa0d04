package chi

import (
	"time"

	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/domain/search/filter"
	"github.com/kailas-cloud/jobrec/internal/domain/search/result"
	"github.com/kailas-cloud/jobrec/internal/usecase/recommend"
)

// RecommendationRequest is the body of POST /v1/recommendations.
type RecommendationRequest struct {
	Text     string      `json:"text"`
	K        *int        `json:"k,omitempty"`
	Filters  *FiltersDTO `json:"filters,omitempty"`
	MinScore *float64    `json:"min_score,omitempty"`
}

// FiltersDTO restricts which postings may be recommended.
type FiltersDTO struct {
	ExperienceLevels []string `json:"experience_levels,omitempty"`
	MinSalary        *float64 `json:"min_salary,omitempty"`
	RemoteOnly       bool     `json:"remote_only,omitempty"`
}

// RecommendationResponse lists ranked postings.
type RecommendationResponse struct {
	Version   string      `json:"version"`
	NoMatches bool        `json:"no_matches"`
	Results   []ResultDTO `json:"results"`
}

// ResultDTO is one ranked posting.
type ResultDTO struct {
	Rank            int      `json:"rank"`
	Index           int      `json:"index"`
	Score           float64  `json:"score"`
	JobID           string   `json:"job_id"`
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Location        string   `json:"location"`
	URL             string   `json:"url"`
	Salary          *float64 `json:"salary,omitempty"`
	ExperienceLevel string   `json:"experience_level"`
	Remote          bool     `json:"remote"`
}

// PostingDTO is a full corpus entry.
type PostingDTO struct {
	Index           int      `json:"index"`
	JobID           string   `json:"job_id"`
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Location        string   `json:"location"`
	URL             string   `json:"url"`
	Description     string   `json:"description"`
	Skills          string   `json:"skills"`
	Salary          *float64 `json:"salary,omitempty"`
	ExperienceLevel string   `json:"experience_level"`
	Remote          bool     `json:"remote"`
}

// ModelDTO describes the loaded artifact.
type ModelDTO struct {
	Version     string        `json:"version"`
	CreatedAt   time.Time     `json:"created_at"`
	LoadedAt    time.Time     `json:"loaded_at"`
	Rows        int           `json:"rows"`
	Cols        int           `json:"cols"`
	NNZ         int           `json:"nnz"`
	MaxFeatures int           `json:"max_features"`
	Normalizer  NormalizerDTO `json:"normalizer"`
}

// NormalizerDTO is the text normalization the artifact was built with.
type NormalizerDTO struct {
	Language       string `json:"language"`
	MinTokenLength int    `json:"min_token_length"`
	Stem           bool   `json:"stem"`
	StripDigits    bool   `json:"strip_digits"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func filtersFromDTO(f *FiltersDTO) (filter.Filter, error) {
	if f == nil {
		return filter.Filter{}, nil
	}
	return filter.New(f.ExperienceLevels, f.MinSalary, f.RemoteOnly)
}

func salaryOf(p *posting.Posting) *float64 {
	if v, ok := p.Salary(); ok {
		return &v
	}
	return nil
}

func recommendationToDTO(resp recommend.Response) RecommendationResponse {
	items := make([]ResultDTO, len(resp.Results))
	for i := range resp.Results {
		items[i] = resultToDTO(&resp.Results[i])
	}
	return RecommendationResponse{Version: resp.Version, NoMatches: resp.NoMatches, Results: items}
}

func resultToDTO(r *result.Result) ResultDTO {
	p := r.Posting()
	return ResultDTO{
		Rank:            r.Rank(),
		Index:           r.Index(),
		Score:           r.Score(),
		JobID:           p.ID(),
		Title:           p.Title(),
		Company:         p.Company(),
		Location:        p.Location(),
		URL:             p.URL(),
		Salary:          salaryOf(&p),
		ExperienceLevel: p.Experience(),
		Remote:          p.Remote(),
	}
}

func postingToDTO(index int, p *posting.Posting) PostingDTO {
	return PostingDTO{
		Index:           index,
		JobID:           p.ID(),
		Title:           p.Title(),
		Company:         p.Company(),
		Location:        p.Location(),
		URL:             p.URL(),
		Description:     p.Description(),
		Skills:          p.Skills(),
		Salary:          salaryOf(p),
		ExperienceLevel: p.Experience(),
		Remote:          p.Remote(),
	}
}

func modelToDTO(st recommend.Stats) ModelDTO {
	return ModelDTO{
		Version:     st.Version,
		CreatedAt:   st.CreatedAt.UTC(),
		LoadedAt:    st.LoadedAt.UTC(),
		Rows:        st.Rows,
		Cols:        st.Cols,
		NNZ:         st.NNZ,
		MaxFeatures: st.MaxFeatures,
		Normalizer: NormalizerDTO{
			Language:       st.Normalizer.Language,
			MinTokenLength: st.Normalizer.MinTokenLength,
			Stem:           st.Normalizer.Stem,
			StripDigits:    st.Normalizer.StripDigits,
		},
	}
}
