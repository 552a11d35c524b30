package models

// BatchResult is the per-item outcome summary of one ingested notification
// batch. The institution gets this back with a success acknowledgment even
// when individual items were skipped or failed.
type BatchResult struct {
	Accrued    int `json:"accrued"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}
