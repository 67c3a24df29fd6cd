package entity

// Seat binds one connection handle to one of the two player marks.
// The core never looks inside the connection handle.
type Seat struct {
	ConnID string `json:"conn_id"`
	Mark   string `json:"mark"`
}
