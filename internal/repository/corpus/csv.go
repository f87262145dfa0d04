package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/posting"
)

// ctxCheckEvery bounds how many rows are read between context checks.
const ctxCheckEvery = 1024

// CSVConfig locates the postings export and the optional skills tables.
type CSVConfig struct {
	// Path is the postings CSV.
	Path string
	// SkillsMapPath maps skill_abr to skill_name.
	SkillsMapPath string
	// JobSkillsPath bridges job_id to skill_abr.
	JobSkillsPath string
}

// CSVSource reads postings from a CSV export.
type CSVSource struct {
	cfg    CSVConfig
	logger *zap.Logger
}

// NewCSVSource creates a CSV source.
func NewCSVSource(cfg CSVConfig, logger *zap.Logger) *CSVSource {
	return &CSVSource{cfg: cfg, logger: logger}
}

// Load reads every posting in file order. Structured skills are joined in
// when both skills tables are configured; missing skills files are logged
// and skipped.
func (s *CSVSource) Load(ctx context.Context) (posting.Corpus, error) {
	skills := s.loadSkills(ctx)

	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return posting.Corpus{}, fmt.Errorf("open postings: %w", err)
	}
	defer f.Close()

	r := newReader(f)
	header, err := r.Read()
	if err != nil {
		return posting.Corpus{}, fmt.Errorf("%w: read postings header: %v", domain.ErrData, err)
	}
	cols, ok := newColumns(header)
	if !ok {
		return posting.Corpus{}, fmt.Errorf("%w: postings header has no %s column", domain.ErrData, idMarker)
	}

	var postings []posting.Posting
	for row := 1; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return posting.Corpus{}, fmt.Errorf("%w: postings row %d: %v", domain.ErrData, row, err)
		}
		if row%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return posting.Corpus{}, err
			}
		}

		fields := cols.fields(record)
		fields.Skills = joinNonEmpty(fields.Skills, skills[fields.ID])
		p, err := posting.New(fields)
		if err != nil {
			return posting.Corpus{}, fmt.Errorf("postings row %d: %w", row, err)
		}
		postings = append(postings, p)
	}

	s.logger.Info("postings loaded",
		zap.String("path", s.cfg.Path),
		zap.Int("postings", len(postings)),
		zap.Int("with_structured_skills", len(skills)),
	)
	return posting.NewCorpus(postings)
}

// loadSkills returns job_id -> space-joined skill names.
func (s *CSVSource) loadSkills(ctx context.Context) map[string]string {
	if s.cfg.SkillsMapPath == "" || s.cfg.JobSkillsPath == "" {
		return nil
	}
	names, err := readPairs(ctx, s.cfg.SkillsMapPath, "skill_abr", "skill_name")
	if err != nil {
		s.logger.Warn("skills map unavailable, continuing without structured skills", zap.Error(err))
		return nil
	}
	bridge, err := readPairs(ctx, s.cfg.JobSkillsPath, idMarker, "skill_abr")
	if err != nil {
		s.logger.Warn("job skills unavailable, continuing without structured skills", zap.Error(err))
		return nil
	}

	lookup := make(map[string]string, len(names))
	for _, p := range names {
		lookup[p[0]] = p[1]
	}
	grouped := make(map[string][]string)
	for _, p := range bridge {
		if name, ok := lookup[p[1]]; ok && name != "" {
			grouped[p[0]] = append(grouped[p[0]], name)
		}
	}
	out := make(map[string]string, len(grouped))
	for id, list := range grouped {
		out[id] = strings.Join(list, " ")
	}
	return out
}

// readPairs reads two columns from a CSV file. A key column name matches any
// header containing it.
func readPairs(ctx context.Context, path, keyCol, valCol string) ([][2]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := newReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	ki, vi := -1, -1
	for i, h := range header {
		name := cleanHeader(h)
		if ki < 0 && strings.Contains(name, keyCol) {
			ki = i
		}
		if vi < 0 && name == valCol {
			vi = i
		}
	}
	if ki < 0 || vi < 0 {
		return nil, fmt.Errorf("%s: need columns %s and %s", path, keyCol, valCol)
	}

	var out [][2]string
	for n := 0; ; n++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if ki < len(record) && vi < len(record) {
			out = append(out, [2]string{strings.TrimSpace(record[ki]), strings.TrimSpace(record[vi])})
		}
	}
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}
