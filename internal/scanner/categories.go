package scanner

import (
	"strings"

	"github.com/Aman-CERP/fsindex/internal/store"
)

var categoryByExt = map[string]store.Category{
	".txt": store.CategoryText,
	".md":  store.CategoryText,
	".rst": store.CategoryText,
	".log": store.CategoryText,

	".doc":  store.CategoryDocument,
	".docx": store.CategoryDocument,
	".pdf":  store.CategoryDocument,
	".odt":  store.CategoryDocument,
	".rtf":  store.CategoryDocument,

	".xls":  store.CategorySpreadsheet,
	".xlsx": store.CategorySpreadsheet,
	".csv":  store.CategorySpreadsheet,
	".ods":  store.CategorySpreadsheet,

	".ppt":  store.CategoryPresentation,
	".pptx": store.CategoryPresentation,
	".odp":  store.CategoryPresentation,

	".jpg":  store.CategoryImage,
	".jpeg": store.CategoryImage,
	".png":  store.CategoryImage,
	".gif":  store.CategoryImage,
	".bmp":  store.CategoryImage,
	".svg":  store.CategoryImage,
	".webp": store.CategoryImage,
	".tiff": store.CategoryImage,
	".heic": store.CategoryImage,

	".mp4":  store.CategoryVideo,
	".avi":  store.CategoryVideo,
	".mov":  store.CategoryVideo,
	".mkv":  store.CategoryVideo,
	".webm": store.CategoryVideo,

	".mp3":  store.CategoryAudio,
	".wav":  store.CategoryAudio,
	".flac": store.CategoryAudio,
	".m4a":  store.CategoryAudio,
	".ogg":  store.CategoryAudio,

	".zip": store.CategoryArchive,
	".rar": store.CategoryArchive,
	".7z":  store.CategoryArchive,
	".tar": store.CategoryArchive,
	".gz":  store.CategoryArchive,
	".bz2": store.CategoryArchive,
	".xz":  store.CategoryArchive,

	".py":    store.CategoryCode,
	".js":    store.CategoryCode,
	".ts":    store.CategoryCode,
	".java":  store.CategoryCode,
	".cpp":   store.CategoryCode,
	".c":     store.CategoryCode,
	".h":     store.CategoryCode,
	".go":    store.CategoryCode,
	".rs":    store.CategoryCode,
	".rb":    store.CategoryCode,
	".sh":    store.CategoryCode,
	".html":  store.CategoryCode,
	".css":   store.CategoryCode,
	".json":  store.CategoryCode,
	".xml":   store.CategoryCode,
	".yaml":  store.CategoryCode,
	".yml":   store.CategoryCode,
	".toml":  store.CategoryCode,
	".sql":   store.CategoryCode,
	".swift": store.CategoryCode,
	".kt":    store.CategoryCode,

	".exe": store.CategoryExecutable,
	".app": store.CategoryExecutable,
	".dmg": store.CategoryExecutable,
	".msi": store.CategoryExecutable,
	".deb": store.CategoryExecutable,
	".rpm": store.CategoryExecutable,
}

// Categorize maps an extension (with or without the dot, any case) to its
// category. Unknown extensions are CategoryOther.
func Categorize(ext string) store.Category {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if c, ok := categoryByExt[ext]; ok {
		return c
	}
	return store.CategoryOther
}
