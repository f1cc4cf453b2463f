package mapper

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// fromJSON returns nil for empty or corrupt columns.
func fromJSON[T any](data datatypes.JSON) *T {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}

func stringsFromJSON(data datatypes.JSON) []string {
	if list := fromJSON[[]string](data); list != nil {
		return *list
	}
	return []string{}
}
