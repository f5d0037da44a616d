// Package errorlog appends upstream failures to a plain-text diagnostics file
// and rotates it into zstd-compressed archives.
package errorlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Recorder is what clients depend on; *Log implements it.
type Recorder interface {
	Record(source string, err error)
}

type Log struct {
	Path string
	Now  func() time.Time

	mu sync.Mutex
}

func New(path string) *Log {
	return &Log{Path: path, Now: time.Now}
}

func (l *Log) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Record writes `<ISO time> - <source> Error: "<message>"`.
func (l *Log) Record(source string, err error) {
	if l == nil || err == nil {
		return
	}
	_ = l.Append(fmt.Sprintf("%s Error: %q", source, err.Error()))
}

func (l *Log) Append(msg string) error {
	if l == nil || l.Path == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	line := fmt.Sprintf("%s - %s\n", l.now().UTC().Format("2006-01-02T15:04:05.000Z"), msg)
	_, err = f.WriteString(line)
	return err
}

// Rotate compresses the current file to <path>.<timestamp>.zst and truncates it
// once it reaches maxBytes. Only the newest keep archives are retained.
// It reports whether a rotation happened.
func (l *Log) Rotate(maxBytes int64, keep int) (bool, error) {
	if l == nil || l.Path == "" {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := os.Stat(l.Path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if maxBytes > 0 && st.Size() < maxBytes {
		return false, nil
	}
	if st.Size() == 0 {
		return false, nil
	}

	archive := fmt.Sprintf("%s.%s.zst", l.Path, l.now().UTC().Format("20060102T150405.000000000"))
	if err := compressFile(l.Path, archive); err != nil {
		_ = os.Remove(archive)
		return false, err
	}
	if err := os.Truncate(l.Path, 0); err != nil {
		return false, err
	}
	if keep > 0 {
		if err := l.prune(keep); err != nil {
			return true, err
		}
	}
	return true, nil
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(out)
	if err != nil {
		_ = out.Close()
		return err
	}
	if _, err := io.Copy(enc, in); err != nil {
		_ = enc.Close()
		_ = out.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Archives lists rotated files, oldest first.
func (l *Log) Archives() ([]string, error) {
	matches, err := filepath.Glob(l.Path + ".*.zst")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (l *Log) prune(keep int) error {
	archives, err := l.Archives()
	if err != nil {
		return err
	}
	for len(archives) > keep {
		if err := os.Remove(archives[0]); err != nil && !os.IsNotExist(err) {
			return err
		}
		archives = archives[1:]
	}
	return nil
}

// ReadArchive decompresses one archive; used by tests and support tooling.
func ReadArchive(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return "", err
	}
	defer dec.Close()
	var sb strings.Builder
	if _, err := io.Copy(&sb, dec); err != nil {
		return "", err
	}
	return sb.String(), nil
}
