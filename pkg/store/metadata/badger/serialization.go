package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/dittocmis/pkg/repository"
)

// Serialization Strategy
// ======================
//
// Records are stored as JSON. The object payload is already encoded by the
// repository layer and is kept as opaque bytes; only the index fields are
// lifted into the envelope so that index maintenance on update does not need
// to understand the payload.

// recordData is the persisted envelope of one repository.Record.
type recordData struct {
	ParentID  string `json:"parent_id,omitempty"`
	SeriesID  string `json:"series_id,omitempty"`
	ContentID string `json:"content_id,omitempty"`
	Data      []byte `json:"data"`
}

func encodeRecord(rec repository.Record) ([]byte, error) {
	data, err := json.Marshal(recordData{
		ParentID:  rec.ParentID,
		SeriesID:  rec.SeriesID,
		ContentID: rec.ContentID,
		Data:      rec.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
	}
	return data, nil
}

func decodeRecord(id string, data []byte) (repository.Record, error) {
	var rd recordData
	if err := json.Unmarshal(data, &rd); err != nil {
		return repository.Record{}, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return repository.Record{
		ID:        id,
		ParentID:  rd.ParentID,
		SeriesID:  rd.SeriesID,
		ContentID: rd.ContentID,
		Data:      rd.Data,
	}, nil
}
