// Package jobrec recommends job postings for a free-text profile using a
// TF-IDF vector space over the posting corpus.
//
// An artifact is built once from the corpus and published to a store (a
// local directory by default, Redis or S3 otherwise). An Engine loads the
// published artifact and answers queries in memory.
//
//	m, _ := jobrec.Build(ctx, postings, jobrec.WithDir("artifacts"))
//
//	eng, _ := jobrec.Open(jobrec.WithDir("artifacts"))
//	defer eng.Close()
//	recs, _ := eng.Recommend(ctx, "python developer, django, sql", 5)
//	for _, r := range recs.Items {
//	    fmt.Println(r.Rank, r.Score, r.Posting.Title)
//	}
package jobrec
