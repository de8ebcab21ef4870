package domain

// Jurisdiction is a fixed reference entity partitioning requests and
// internal operators into non-overlapping administrative domains. The set
// is provisioned once (~5 rows) and immutable at runtime.
type Jurisdiction struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Seat string `json:"seat"`
}
