package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/fsindex/internal/store"
)

func TestFileText(t *testing.T) {
	rec := &store.FileRecord{
		Name:      "invoice_march.pdf",
		Category:  store.CategoryDocument,
		ParentDir: "/home/ana/billing",
	}

	assert.Equal(t, "invoice_march.pdf document /home/ana/billing", FileText(rec))
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		enabled  bool
		maxBytes int64
		want     bool
	}{
		{"empty file", 0, true, 0, true},
		{"exactly at default limit", DefaultMaxFileBytes, true, 0, true},
		{"one byte over default limit", DefaultMaxFileBytes + 1, true, 0, false},
		{"disabled", 10, false, 0, false},
		{"custom limit inclusive", 500, true, 500, true},
		{"custom limit exceeded", 501, true, 500, false},
		{"negative limit means default", DefaultMaxFileBytes, true, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(tt.size, tt.enabled, tt.maxBytes))
		})
	}
}
