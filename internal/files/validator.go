package files

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo holds information about a payload to be sent.
type FileInfo struct {
	// Path is the absolute path to the file.
	Path string

	// Name is the filename (without directory).
	Name string

	// Size is the file size in bytes.
	Size int64

	// Type is the MIME type of the file (e.g. "application/pdf").
	Type string

	// ModTime is the file's last modification time.
	ModTime time.Time
}

// Validate checks that the file exists, is a regular file and is readable,
// and returns its metadata.
func Validate(path string) (*FileInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", path, err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file does not exist: %s", path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if stat.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	if !stat.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if stat.Size() == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("file is not readable: %s", path)
	}
	f.Close()

	return &FileInfo{
		Path:    absPath,
		Name:    filepath.Base(absPath),
		Size:    stat.Size(),
		Type:    DetectMIMEType(absPath),
		ModTime: stat.ModTime(),
	}, nil
}

// DetectMIMEType guesses the MIME type from the file extension, falling
// back to application/octet-stream.
func DetectMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// UniqueName returns a filename that does not yet exist in dir by appending
// (1), (2), etc. before the extension.
func UniqueName(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}

	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]

	counter := 1
	for {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, counter, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		counter++
	}
}

// FormatSize formats bytes to a human readable string.
func FormatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)

	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatSpeed formats a byte rate to a human readable string.
func FormatSpeed(bytesPerSecond float64) string {
	const (
		kb = 1024.0
		mb = kb * 1024
	)

	switch {
	case bytesPerSecond >= mb:
		return fmt.Sprintf("%.2f MB/s", bytesPerSecond/mb)
	case bytesPerSecond >= kb:
		return fmt.Sprintf("%.2f KB/s", bytesPerSecond/kb)
	default:
		return fmt.Sprintf("%.0f B/s", bytesPerSecond)
	}
}

// FormatDuration formats a duration to a human readable string.
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds()) % 60
	minutes := int(d.Minutes()) % 60
	hours := int(d.Hours())

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
