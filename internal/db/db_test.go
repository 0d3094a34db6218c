package db

import (
	"testing"
	"testing/fstest"
)

func TestDiscoverMigrations(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		want    []string
		wantErr bool
	}{
		{"sorted", []string{"002_b.sql", "001_a.sql", "README.md"}, []string{"001_a.sql", "002_b.sql"}, false},
		{"duplicate version", []string{"001_a.sql", "001_b.sql"}, nil, true},
		{"no version", []string{"schema.sql"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for _, f := range tt.files {
				fsys[f] = &fstest.MapFile{Data: []byte("SELECT 1;")}
			}
			got, err := discoverMigrations(fsys)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
