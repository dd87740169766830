package domain

import (
	"encoding/json"
	"time"
)

// StagingRecord is transient working storage addressed by an opaque handle.
type StagingRecord struct {
	ID        int64           `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
