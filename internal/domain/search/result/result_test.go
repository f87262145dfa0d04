package result

import (
	"testing"

	"github.com/kailas-cloud/jobrec/internal/domain/posting"
)

func TestNew(t *testing.T) {
	p, _ := posting.New(posting.Fields{ID: "j-1", Title: "Data Scientist"})
	r := New(1, 7, 0.42, p)

	if r.Rank() != 1 {
		t.Errorf("Rank() = %d", r.Rank())
	}
	if r.Index() != 7 {
		t.Errorf("Index() = %d", r.Index())
	}
	if r.Score() != 0.42 {
		t.Errorf("Score() = %f", r.Score())
	}
	got := r.Posting()
	if got.ID() != "j-1" || got.Title() != "Data Scientist" {
		t.Errorf("Posting() = %q/%q", got.ID(), got.Title())
	}
}
