package model

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// HeatmapExport is the top-level JSON structure for the error heatmap export.
type HeatmapExport struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Students    int                 `json:"students"`
	Questions   int                 `json:"questions"`
	Stats       []QuestionErrorStat `json:"stats"`
}

// StudentImport is the file format accepted by the import command: either a
// list of students or an object keyed by user id.
type StudentImport []Student

// UnmarshalJSON implements json.Unmarshaler. Keyed objects are returned sorted
// by user id, and the key fills in a missing userId.
func (si *StudentImport) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []Student
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*si = list
		return nil
	}

	var keyed map[string]Student
	if err := json.Unmarshal(trimmed, &keyed); err != nil {
		return err
	}
	ids := make([]string, 0, len(keyed))
	for id := range keyed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	list := make([]Student, 0, len(ids))
	for _, id := range ids {
		s := keyed[id]
		if s.UserID == "" {
			s.UserID = id
		}
		list = append(list, s)
	}
	*si = list
	return nil
}
