package artifact

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/jobrec/internal/domain/posting"
)

// corpusRow is the parquet schema of the corpus part. Row order is corpus order.
type corpusRow struct {
	JobID       string   `parquet:"job_id"`
	Title       string   `parquet:"title"`
	Company     string   `parquet:"company_name"`
	Location    string   `parquet:"location"`
	URL         string   `parquet:"job_posting_url"`
	Description string   `parquet:"description"`
	Skills      string   `parquet:"skills"`
	Experience  string   `parquet:"experience_level"`
	Remote      bool     `parquet:"remote_allowed"`
	Salary      *float64 `parquet:"normalized_salary,optional"`
	Normalized  string   `parquet:"normalized_text"`
}

// WriteCorpus writes the corpus as a parquet file.
func WriteCorpus(w io.Writer, c posting.Corpus) error {
	all := c.All()
	rows := make([]corpusRow, len(all))
	for i := range all {
		f := all[i].Fields()
		rows[i] = corpusRow{
			JobID: f.ID, Title: f.Title, Company: f.Company, Location: f.Location,
			URL: f.URL, Description: f.Description, Skills: f.Skills,
			Experience: f.Experience, Remote: f.Remote, Salary: f.Salary,
			Normalized: all[i].Normalized(),
		}
	}
	if err := parquet.Write(w, rows); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}

// ReadCorpus reads a corpus written by WriteCorpus.
func ReadCorpus(r io.ReaderAt, size int64) (posting.Corpus, error) {
	rows, err := parquet.Read[corpusRow](r, size)
	if err != nil {
		return posting.Corpus{}, fmt.Errorf("read parquet: %w", err)
	}
	postings := make([]posting.Posting, len(rows))
	for i, row := range rows {
		postings[i] = posting.Reconstruct(posting.Fields{
			ID: row.JobID, Title: row.Title, Company: row.Company, Location: row.Location,
			URL: row.URL, Description: row.Description, Skills: row.Skills,
			Experience: row.Experience, Remote: row.Remote, Salary: row.Salary,
		}, row.Normalized)
	}
	return posting.NewCorpus(postings)
}
