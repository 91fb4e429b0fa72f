package cmd

import (
	"path/filepath"
	"testing"

	"github.com/iksnae/repo-pilot/internal"
)

func TestInspectCommand(t *testing.T) {
	dbPath := seedCache(t, internal.CreateTestEntries(2))

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"configured cache", []string{"inspect"}, false},
		{"explicit path", []string{"inspect", dbPath, "--sample", "1"}, false},
		{"new database", []string{"inspect", filepath.Join(t.TempDir(), "fresh.db")}, false},
		{"too many args", []string{"inspect", "a", "b"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, dbPath, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("inspect error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDescribeValue(t *testing.T) {
	tests := []struct {
		name string
		pair internal.KeyValuePair
		want string
	}{
		{
			name: "corpus",
			pair: internal.KeyValuePair{Key: "repo-content-octo/hello", Value: `{"id":"octo/hello","token_length":1234,"schema_version":17,"source_version":"2024-01-01T00:00:00Z","content":"x"}`},
			want: "1,234 tokens, schema 17, pushed 2024-01-01T00:00:00Z",
		},
		{
			name: "failed corpus",
			pair: internal.KeyValuePair{Key: "repo-content-octo/big", Value: `{"id":"octo/big","error":"too large"}`},
			want: "failed: too large",
		},
		{
			name: "history",
			pair: internal.KeyValuePair{Key: "repo-chat-octo/hello", Value: `[{"user":{"role":"user","content":"q"},"model":{"role":"model","content":"a"}},{"note":"Error: x"}]`},
			want: "2 entries, 1 pairs",
		},
		{
			name: "unreadable history",
			pair: internal.KeyValuePair{Key: "repo-chat-octo/hello", Value: `{`},
			want: "unreadable history",
		},
		{
			name: "other key",
			pair: internal.KeyValuePair{Key: "something", Value: "x"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeValue(tt.pair); got != tt.want {
				t.Errorf("describeValue() = %q, want %q", got, tt.want)
			}
		})
	}
}
