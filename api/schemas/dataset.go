package schemas

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/json-iterator/go"
)

// -- Dataset Schemas --

// Collection is one labeled group of duplicate findings in a SeFiLa dataset.
type Collection struct {
	ID       FlexibleInt      `json:"id"`
	Name     string           `json:"name"`
	Findings []DatasetFinding `json:"findings"`
}

// Key returns the label key of the collection.
func (c Collection) Key() LabelKey {
	return LabelKey{CollectionID: int(c.ID), Name: c.Name}
}

// DatasetFinding is a raw scanner finding as it appears in the dataset. The
// Finding body is kept as raw JSON per field since every tool reports a
// different shape.
type DatasetFinding struct {
	ID      FlexibleInt                `json:"id"`
	Tool    string                     `json:"tool"`
	Finding map[string]json.RawMessage `json:"finding"`
}

// FlexibleInt accepts both JSON numbers and numeric strings.
type FlexibleInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid integer identifier %s: %w", data, err)
	}
	*f = FlexibleInt(n)
	return nil
}

// Snapshot is a pre-built corpus and its labels, stored as JSON.
type Snapshot struct {
	Corpus map[FindingID]string `json:"corpus"`
	Labels []SnapshotLabel      `json:"labels"`
}

// SnapshotLabel is the serialized form of one Labels entry.
type SnapshotLabel struct {
	CollectionID int         `json:"collection_id"`
	Name         string      `json:"name"`
	Findings     []FindingID `json:"findings"`
}
