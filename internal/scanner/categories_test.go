package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/fsindex/internal/store"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		ext  string
		want store.Category
	}{
		{".txt", store.CategoryText},
		{".PDF", store.CategoryDocument},
		{"docx", store.CategoryDocument},
		{".csv", store.CategorySpreadsheet},
		{".pptx", store.CategoryPresentation},
		{".jpeg", store.CategoryImage},
		{".mkv", store.CategoryVideo},
		{".flac", store.CategoryAudio},
		{".7z", store.CategoryArchive},
		{".py", store.CategoryCode},
		{".json", store.CategoryCode},
		{".exe", store.CategoryExecutable},
		{".dmg", store.CategoryExecutable},
		{".xyz", store.CategoryOther},
		{"", store.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.ext))
		})
	}
}

func TestExtensionOf(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.TXT", ".txt"},
		{"archive.tar.gz", ".gz"},
		{".bashrc", ""},
		{".config.yaml", ".yaml"},
		{"Makefile", ""},
		{"trailing.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extensionOf(tt.name))
		})
	}
}
