// Package metadata turns candidate paths into FileRecords: size and
// timestamps from stat, a content-sniffed MIME category, a bounded content
// preview for text-like files, and EXIF fields for images. Per-file I/O
// failures are non-fatal; the file is marked unreadable and excluded from
// analysis.
package metadata

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/sortd-ai/sortd/pkg/logger"
	"github.com/sortd-ai/sortd/pkg/types/organizer"
	"github.com/sortd-ai/sortd/pkg/utils"
)

// EXIF map keys on FileRecord.
const (
	ExifCaptureDate = "capture_date"
	ExifCameraMake  = "camera_make"
	ExifCameraModel = "camera_model"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".webp": true, ".svg": true, ".tiff": true, ".tif": true, ".ico": true,
	".heic": true, ".heif": true, ".raw": true, ".cr2": true, ".nef": true,
}

var textExts = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".rst": true, ".log": true,
	".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".java": true, ".cpp": true, ".c": true, ".h": true, ".cs": true,
	".go": true, ".rs": true, ".rb": true, ".php": true, ".swift": true,
	".kt": true, ".scala": true, ".html": true, ".css": true, ".scss": true,
	".sass": true, ".xml": true, ".json": true, ".yaml": true, ".yml": true,
	".sh": true, ".bash": true, ".sql": true, ".r": true, ".m": true,
}

var documentExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".odt": true, ".rtf": true,
	".xls": true, ".xlsx": true, ".ods": true, ".csv": true,
	".ppt": true, ".pptx": true, ".odp": true,
}

// Extractor produces FileRecords from paths.
type Extractor struct {
	// PreviewBytes bounds the content preview read for text-like files.
	PreviewBytes int
}

// New returns an Extractor with the given preview bound.
func New(previewBytes int) *Extractor {
	return &Extractor{PreviewBytes: previewBytes}
}

// Extract builds the FileRecord for one path. The record is always returned;
// on stat failure it carries the Unreadable marker so the caller can log the
// error and keep going.
func (e *Extractor) Extract(ctx context.Context, path string) organizer.FileRecord {
	rec := organizer.FileRecord{
		Path:      path,
		Name:      filepath.Base(path),
		Ext:       strings.ToLower(filepath.Ext(path)),
		ParentDir: filepath.Base(filepath.Dir(path)),
	}

	info, err := os.Stat(path)
	if err != nil {
		rec.Unreadable = true
		rec.ReadError = err.Error()
		rec.Category = organizer.CategoryOther
		return rec
	}
	rec.Size = info.Size()
	rec.ModTime = info.ModTime()

	sniffed, err := sniffMIME(path)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("path", path).Debug("content sniff failed")
		rec.Unreadable = true
		rec.ReadError = err.Error()
		rec.Category = categoryFromExt(rec.Ext)
		return rec
	}
	rec.MIME = sniffed
	rec.Category = categorize(sniffed, rec.Ext)

	switch rec.Category {
	case organizer.CategoryText:
		if preview, err := readPreview(path, e.PreviewBytes); err == nil {
			rec.Preview = preview
		} else {
			logger.G(ctx).WithError(err).WithField("path", path).Debug("preview read failed")
		}
	case organizer.CategoryImage:
		rec.EXIF = extractEXIF(path)
	}

	return rec
}

// ExtractAll maps Extract over the path list, partitioning readable records
// from unreadable ones.
func (e *Extractor) ExtractAll(ctx context.Context, paths []string) (readable, unreadable []organizer.FileRecord) {
	for _, p := range paths {
		rec := e.Extract(ctx, p)
		if rec.Unreadable {
			unreadable = append(unreadable, rec)
			continue
		}
		readable = append(readable, rec)
	}
	return readable, unreadable
}

// sniffMIME detects the MIME type from the first 512 bytes of content.
func sniffMIME(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}

	mime := http.DetectContentType(buf[:n])
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return mime, nil
}

// categorize derives the enumerated category from the sniffed MIME type,
// refined by extension for formats sniffing cannot tell apart (csv vs txt,
// office zips vs archives).
func categorize(mime, ext string) organizer.Category {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return organizer.CategoryImage
	case mime == "application/pdf":
		return organizer.CategoryDocument
	case strings.HasPrefix(mime, "text/"):
		if documentExts[ext] {
			return organizer.CategoryDocument
		}
		return organizer.CategoryText
	}
	return categoryFromExt(ext)
}

func categoryFromExt(ext string) organizer.Category {
	switch {
	case imageExts[ext]:
		return organizer.CategoryImage
	case textExts[ext]:
		return organizer.CategoryText
	case documentExts[ext]:
		return organizer.CategoryDocument
	}
	return organizer.CategoryOther
}

func readPreview(path string, maxBytes int) (string, error) {
	if utils.IsBinaryFile(path) {
		return "", nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, maxBytes+1)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	return utils.Truncate(string(buf[:n]), maxBytes), nil
}

// extractEXIF pulls the capture date and camera fields out of an image.
// Absent or corrupt EXIF simply yields a nil map.
func extractEXIF(path string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil
	}

	out := map[string]string{}
	if tm, err := x.DateTime(); err == nil {
		out[ExifCaptureDate] = tm.Format(time.RFC3339)
	}
	if tag, err := x.Get(exif.Make); err == nil {
		if v, err := tag.StringVal(); err == nil {
			out[ExifCameraMake] = strings.TrimSpace(v)
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if v, err := tag.StringVal(); err == nil {
			out[ExifCameraModel] = strings.TrimSpace(v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// CaptureDate parses the EXIF capture date off a record, if present.
func CaptureDate(rec organizer.FileRecord) *time.Time {
	raw, ok := rec.EXIF[ExifCaptureDate]
	if !ok {
		return nil
	}
	tm, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &tm
}
