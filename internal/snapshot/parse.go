package snapshot

import (
	"encoding/json"
	"fmt"
)

// Parse decodes and validates a serialized snapshot.
func Parse(data []byte) (*EventSnapshot, error) {
	var s EventSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
