package memory

import (
	"encoding/json"
	"fmt"
)

// Buckets lists the snapshot partitions durable backends persist, one row each.
var Buckets = []string{"plants", "plant_order", "sites", "designs"}

// EncodeBucket marshals one snapshot partition.
func (s Snapshot) EncodeBucket(bucket string) ([]byte, error) {
	switch bucket {
	case "plants":
		return json.Marshal(s.Plants)
	case "plant_order":
		return json.Marshal(s.PlantOrder)
	case "sites":
		return json.Marshal(s.Sites)
	case "designs":
		return json.Marshal(s.Designs)
	default:
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
}

// DecodeBucket unmarshals one persisted partition into the snapshot. Unknown
// buckets are ignored so older tables keep loading.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var target any
	switch bucket {
	case "plants":
		target = &s.Plants
	case "plant_order":
		target = &s.PlantOrder
	case "sites":
		target = &s.Sites
	case "designs":
		target = &s.Designs
	default:
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
