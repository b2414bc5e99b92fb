package worker

import (
	"testing"
)

func TestDecodeAudit(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"candidate_key":"sub:9","assignment_id":"42","auto_submitted":true,"outcome":"accepted","answered":2}`, false},
		{"numeric assignment id", `{"candidate_key":"sub:9","assignment_id":42,"outcome":"rejected"}`, false},
		{"malformed", `{"candidate_key":`, true},
		{"missing candidate", `{"assignment_id":"42","outcome":"accepted"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := decodeAudit(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeAudit err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && a.RecordedAt.IsZero() {
				t.Error("RecordedAt not defaulted")
			}
		})
	}
}

func TestAuditRowMatchesColumns(t *testing.T) {
	a, err := decodeAudit(`{"candidate_key":"k","assignment_id":"1","outcome":"accepted"}`)
	if err != nil {
		t.Fatal(err)
	}
	row := auditRow(a)
	if len(row) != len(auditColumns) {
		t.Fatalf("row has %d values, %d columns", len(row), len(auditColumns))
	}
	if row[4].(*string) != nil {
		t.Error("empty error_kind should be NULL")
	}
}
