package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/posting"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// OpenPostgres opens a lib/pq connection pool and verifies it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresSource reads postings from a table or view. Column names follow the
// CSV export; rows are ordered by the order column so that row indices are
// stable across builds.
type PostgresSource struct {
	db     *sql.DB
	query  string
	logger *zap.Logger
}

// NewPostgresSource validates identifiers and prepares the query.
func NewPostgresSource(db *sql.DB, table, orderBy string, logger *zap.Logger) (*PostgresSource, error) {
	if orderBy == "" {
		orderBy = idMarker
	}
	for _, ident := range []string{table, orderBy} {
		if !identRe.MatchString(ident) {
			return nil, fmt.Errorf("%w: invalid identifier %q", domain.ErrInvalidArgument, ident)
		}
	}
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", quote(table), quote(orderBy))
	return &PostgresSource{db: db, query: query, logger: logger}, nil
}

func quote(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// Load runs the query and maps every row.
func (s *PostgresSource) Load(ctx context.Context) (posting.Corpus, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return posting.Corpus{}, fmt.Errorf("query postings: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return posting.Corpus{}, fmt.Errorf("read columns: %w", err)
	}
	cols, ok := newColumns(names)
	if !ok {
		return posting.Corpus{}, fmt.Errorf("%w: postings table has no %s column", domain.ErrData, idMarker)
	}

	values := make([]sql.NullString, len(names))
	dest := make([]any, len(names))
	for i := range values {
		dest[i] = &values[i]
	}
	record := make([]string, len(names))

	var postings []posting.Posting
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return posting.Corpus{}, fmt.Errorf("scan posting: %w", err)
		}
		for i, v := range values {
			record[i] = v.String
		}
		p, err := posting.New(cols.fields(record))
		if err != nil {
			return posting.Corpus{}, fmt.Errorf("postings row %d: %w", len(postings)+1, err)
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return posting.Corpus{}, fmt.Errorf("iterate postings: %w", err)
	}

	s.logger.Info("postings loaded", zap.String("source", "postgres"), zap.Int("postings", len(postings)))
	return posting.NewCorpus(postings)
}
