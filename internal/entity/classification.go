package entity

import "time"

// Bucket is the terminal classification of a processed term.
type Bucket string

const (
	BucketFirstPage  Bucket = "first_page"
	BucketSecondPage Bucket = "second_page"
	BucketNotFound   Bucket = "not_found"
)

// Classification records which bucket a term landed in.
type Classification struct {
	Term       SearchTerm
	Bucket     Bucket
	MatchedURL string
	Error      string // non-empty if the term failed and was downgraded to not_found
	At         time.Time
}

// Buckets holds the three ordered classification sequences of a run.
type Buckets struct {
	FirstPage  []SearchTerm
	SecondPage []SearchTerm
	NotFound   []SearchTerm
}

// Add appends term to the bucket named by b.
func (bs *Buckets) Add(b Bucket, term SearchTerm) {
	switch b {
	case BucketFirstPage:
		bs.FirstPage = append(bs.FirstPage, term)
	case BucketSecondPage:
		bs.SecondPage = append(bs.SecondPage, term)
	default:
		bs.NotFound = append(bs.NotFound, term)
	}
}

// Len is the number of classified terms across all buckets.
func (bs Buckets) Len() int {
	return len(bs.FirstPage) + len(bs.SecondPage) + len(bs.NotFound)
}
