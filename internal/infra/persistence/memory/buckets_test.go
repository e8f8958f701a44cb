package memory

import (
	"testing"

	"gardencore/pkg/domain"
)

func TestBucketsCarryWholeSnapshot(t *testing.T) {
	src := Snapshot{
		Plants:     map[string]Plant{"p1": {Base: domain.Base{ID: "p1"}, ScientificName: "Iris virginica"}},
		PlantOrder: []string{"p1"},
		Sites:      map[string]Site{"s1": {Base: domain.Base{ID: "s1"}, Name: "Pond edge"}},
		Designs:    map[string]DesignRecord{"d1": {Base: domain.Base{ID: "d1"}, SiteID: "s1"}},
	}
	var dst Snapshot
	for _, bucket := range Buckets {
		payload, err := src.EncodeBucket(bucket)
		if err != nil {
			t.Fatalf("encode %s: %v", bucket, err)
		}
		if err := dst.DecodeBucket(bucket, payload); err != nil {
			t.Fatalf("decode %s: %v", bucket, err)
		}
	}
	if dst.Plants["p1"].ScientificName != "Iris virginica" || dst.Sites["s1"].Name != "Pond edge" ||
		dst.Designs["d1"].SiteID != "s1" || len(dst.PlantOrder) != 1 {
		t.Fatalf("snapshot not carried: %+v", dst)
	}
}

func TestBucketErrors(t *testing.T) {
	if _, err := (Snapshot{}).EncodeBucket("seedlings"); err == nil {
		t.Fatalf("expected unknown bucket error")
	}
	var s Snapshot
	if err := s.DecodeBucket("seedlings", []byte(`{}`)); err != nil {
		t.Fatalf("unknown buckets are skipped: %v", err)
	}
	if err := s.DecodeBucket("plants", []byte(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if err := s.DecodeBucket("plants", nil); err != nil {
		t.Fatalf("empty payload is a no-op: %v", err)
	}
}
