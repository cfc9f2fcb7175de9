package analyzer

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/sortd-ai/sortd/pkg/types/organizer"
	"github.com/sortd-ai/sortd/pkg/utils"
)

var (
	errNoVisionClient   = errors.New("no vision client configured")
	errImageTooLarge    = errors.New("image exceeds vision payload limit")
	errNoJSONInResponse = errors.New("no JSON object in model response")
)

// Extension to detailed document type, for files outside the image/text
// categories.
var extensionDoctype = map[string]string{
	".pdf": "pdf",
	".doc": "word", ".docx": "word", ".odt": "word", ".rtf": "word",
	".xls": "spreadsheet", ".xlsx": "spreadsheet", ".ods": "spreadsheet",
	".csv": "spreadsheet", ".numbers": "spreadsheet",
	".ppt": "presentation", ".pptx": "presentation", ".odp": "presentation", ".key": "presentation",
	".zip": "archive", ".tar": "archive", ".gz": "archive", ".bz2": "archive",
	".xz": "archive", ".7z": "archive", ".rar": "archive",
	".exe": "executable", ".msi": "executable", ".dmg": "executable",
	".deb": "executable", ".rpm": "executable", ".appimage": "executable",
	".ttf": "font", ".otf": "font", ".woff": "font", ".woff2": "font",
	".blend": "3d", ".obj": "3d", ".stl": "3d",
	".psd": "design", ".ai": "design", ".sketch": "design", ".fig": "design", ".xd": "design",
	".db": "database", ".sqlite": "database", ".sqlite3": "database", ".mdb": "database",
	".mp4": "video", ".avi": "video", ".mov": "video", ".mkv": "video", ".webm": "video", ".flv": "video",
	".mp3": "audio", ".wav": "audio", ".flac": "audio", ".aac": "audio", ".ogg": "audio", ".m4a": "audio",
}

func detailedType(rec organizer.FileRecord) string {
	if t, ok := extensionDoctype[rec.Ext]; ok {
		return t
	}
	if rec.Category != "" {
		return string(rec.Category)
	}
	return "unknown"
}

func sizeBucket(size int64) string {
	switch {
	case size < 10*1024:
		return "tiny"
	case size < 100*1024:
		return "small"
	case size < 1024*1024:
		return "medium"
	case size < 10*1024*1024:
		return "large"
	default:
		return "huge"
	}
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "this": true,
	"that": true, "with": true, "have": true, "from": true, "they": true,
	"will": true, "what": true, "when": true, "your": true, "which": true,
	"their": true, "about": true, "there": true, "been": true, "has": true,
	"were": true, "into": true, "than": true, "them": true, "then": true,
	"also": true, "some": true, "such": true, "only": true, "over": true,
}

// heuristicTextAnalysis is the model-free fallback: the first preview line
// as summary and the most frequent non-stopword tokens as topics.
func heuristicTextAnalysis(rec organizer.FileRecord) *organizer.TextAnalysis {
	summary := ""
	if rec.Preview != "" {
		summary = utils.Truncate(firstNonEmptyLine(rec.Preview), 120)
	}
	return &organizer.TextAnalysis{
		Summary: summary,
		Topics:  extractKeywords(rec.Preview, 5),
	}
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// extractKeywords returns the top-n tokens by frequency, lowercased,
// stopword-filtered, ties broken alphabetically for determinism.
func extractKeywords(text string, n int) []string {
	counts := map[string]int{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(tok) < 3 || stopwords[tok] {
			continue
		}
		counts[tok]++
	}

	keywords := make([]string, 0, len(counts))
	for tok := range counts {
		keywords = append(keywords, tok)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})

	if len(keywords) > n {
		keywords = keywords[:n]
	}
	return keywords
}
