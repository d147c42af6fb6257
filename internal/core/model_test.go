package core

import (
	"reflect"
	"testing"
)

func record(id, sender string, unread bool) MessageRecord {
	return MessageRecord{
		ID:       id,
		Sender:   sender,
		Subject:  "subject " + id,
		IsUnread: unread,
		IsOpened: !unread,
	}
}

func TestCacheSnapshotMerge(t *testing.T) {
	tests := []struct {
		name     string
		snapshot CacheSnapshot
		records  []MessageRecord
		wantIDs  []string
	}{
		{
			name:     "new records are added",
			snapshot: CacheSnapshot{"m1": record("m1", "a@x.com", true)},
			records:  []MessageRecord{record("m2", "b@y.com", false)},
			wantIDs:  []string{"m1", "m2"},
		},
		{
			name:     "fetched records win over cached ones",
			snapshot: CacheSnapshot{"m1": record("m1", "a@x.com", true)},
			records:  []MessageRecord{record("m1", "a@x.com", false)},
			wantIDs:  []string{"m1"},
		},
		{
			name:     "records without an id are skipped",
			snapshot: CacheSnapshot{},
			records:  []MessageRecord{{Sender: "a@x.com"}},
			wantIDs:  []string{},
		},
		{
			name:     "empty input keeps the snapshot",
			snapshot: CacheSnapshot{"m1": record("m1", "a@x.com", true)},
			records:  nil,
			wantIDs:  []string{"m1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := tt.snapshot.Merge(tt.records)
			if got := merged.IDs(); !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestCacheSnapshotMergeOverwrites(t *testing.T) {
	snapshot := CacheSnapshot{"m1": record("m1", "a@x.com", true)}
	merged := snapshot.Merge([]MessageRecord{record("m1", "a@x.com", false)})

	if merged["m1"].IsUnread {
		t.Errorf("IsUnread = true, want false after merge")
	}
	// The original snapshot must stay untouched.
	if !snapshot["m1"].IsUnread {
		t.Errorf("source snapshot was mutated by Merge")
	}
}

func TestCacheSnapshotPrune(t *testing.T) {
	snapshot := CacheSnapshot{
		"m1": record("m1", "a@x.com", true),
		"m2": record("m2", "a@x.com", true),
		"m3": record("m3", "b@y.com", false),
	}

	tests := []struct {
		name    string
		listing []string
		wantIDs []string
	}{
		{
			name:    "drops ids missing from the listing",
			listing: []string{"m1", "m3", "m4"},
			wantIDs: []string{"m1", "m3"},
		},
		{
			name:    "empty listing drops everything",
			listing: nil,
			wantIDs: []string{},
		},
		{
			name:    "full listing keeps everything",
			listing: []string{"m1", "m2", "m3"},
			wantIDs: []string{"m1", "m2", "m3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruned := snapshot.Prune(tt.listing)
			if got := pruned.IDs(); !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

// A deleted message disappears and a new one lands in the same run.
func TestCacheSnapshotMergeThenPrune(t *testing.T) {
	cached := CacheSnapshot{
		"m1": record("m1", "a@x.com", true),
		"m2": record("m2", "a@x.com", true),
		"m3": record("m3", "b@y.com", false),
	}
	listed := []string{"m1", "m3", "m4"}
	fetched := []MessageRecord{record("m4", "c@z.com", true)}

	next := cached.Merge(fetched).Prune(listed)

	wantIDs := []string{"m1", "m3", "m4"}
	if got := next.IDs(); !reflect.DeepEqual(got, wantIDs) {
		t.Errorf("ids = %v, want %v", got, wantIDs)
	}
	if pruned := len(cached.Merge(fetched)) - len(next); pruned != 1 {
		t.Errorf("pruned count = %d, want 1", pruned)
	}
}
