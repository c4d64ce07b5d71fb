package repository

import "time"

// Analysis represents an analyses row. Features holds the JSON-encoded
// feature list exactly as it was displayed.
type Analysis struct {
	ID           string
	FileName     string
	MediaType    string
	Engine       string
	FeatureCount int
	GDTCount     int
	Features     []byte
	CreatedAt    time.Time
}
