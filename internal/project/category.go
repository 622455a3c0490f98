package project

import "strings"

// Bucket is the display category of a project marker.
type Bucket string

// Buckets, in classification precedence order.
const (
	BucketAMO   Bucket = "amo"
	BucketMOM   Bucket = "mom"
	BucketEXP   Bucket = "exp"
	BucketOther Bucket = "other"
)

var precedence = []Bucket{BucketAMO, BucketMOM, BucketEXP}

var bucketColors = map[Bucket]string{
	BucketAMO:   "red",
	BucketMOM:   "blue",
	BucketEXP:   "green",
	BucketOther: "orange",
}

// Classify maps free-text project types onto a bucket by case-insensitive
// substring. "AMO / MOM" is AMO: the first bucket in precedence order wins.
func Classify(text string) Bucket {
	t := strings.ToLower(text)
	if strings.TrimSpace(t) == "" {
		return BucketOther
	}
	for _, b := range precedence {
		if strings.Contains(t, string(b)) {
			return b
		}
	}
	return BucketOther
}

// Color returns the marker color for the bucket.
func (b Bucket) Color() string {
	if c, ok := bucketColors[b]; ok {
		return c
	}
	return bucketColors[BucketOther]
}

// Bucket classifies the project's own type field.
func (p Project) Bucket() Bucket {
	return Classify(p.Category())
}
