// Package photostore keeps photo bytes on disk under content-addressed
// names. A ref is the hex BLAKE3-256 of the bytes plus an image extension,
// so storing the same photo twice yields the same ref and file.
package photostore

import (
	"encoding/base64"
	"encoding/hex"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/models"
	"github.com/zeebo/blake3"
)

const DefaultMaxBytes = 16 << 20

var extByType = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

var refPattern = regexp.MustCompile(`^[0-9a-f]{64}\.(png|jpg|gif|webp)$`)

type Store struct {
	root     string
	maxBytes int64
}

func New(root string, maxBytes int64) (*Store, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(filepath.Join(root, "tmp"), 0o755); err != nil {
		return nil, errors.Wrap(err, "create photo dir")
	}
	return &Store{root: root, maxBytes: maxBytes}, nil
}

func (s *Store) Root() string { return s.root }

// Validate checks size and sniffed content type and returns the extension
// the photo would be stored under.
func (s *Store) Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", models.ErrInvalidPhoto
	}
	if int64(len(data)) > s.maxBytes {
		return "", models.ErrPhotoTooLarge
	}
	ct := http.DetectContentType(data)
	ext, ok := extByType[ct]
	if !ok {
		return "", models.ErrInvalidPhoto
	}
	return ext, nil
}

// Ref computes the content address of data without storing it.
func Ref(data []byte, ext string) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]) + "." + ext
}

func ValidRef(ref string) bool {
	return refPattern.MatchString(ref)
}

func (s *Store) path(ref string) string {
	return filepath.Join(s.root, ref[:2], ref)
}

// Put writes the photo (temp file + rename) and returns its ref. The file
// is fully in place before Put returns, so a row referencing the ref can be
// committed afterwards.
func (s *Store) Put(data []byte) (string, error) {
	ext, err := s.Validate(data)
	if err != nil {
		return "", err
	}
	ref := Ref(data, ext)
	final := s.path(ref)

	// Тот же контент уже лежит на диске: обновляем mtime, чтобы уборщик его
	// не снёс. Если файл успели убрать, пишем заново.
	now := time.Now()
	if err := os.Chtimes(final, now, now); err == nil {
		return ref, nil
	}

	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return "", errors.Wrap(err, "create shard dir")
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "photo-*.tmp")
	if err != nil {
		return "", errors.Wrap(err, "create temp photo")
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", errors.Wrap(err, "write photo")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", errors.Wrap(err, "sync photo")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "close temp photo")
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return "", errors.Wrap(err, "rename photo")
	}

	success = true
	return ref, nil
}

// Open returns the photo file. Unknown or malformed refs are ErrNotFound.
func (s *Store) Open(ref string) (*os.File, error) {
	if !ValidRef(ref) {
		return nil, models.ErrNotFound
	}
	f, err := os.Open(s.path(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "open photo")
	}
	return f, nil
}

func (s *Store) Exists(ref string) bool {
	if !ValidRef(ref) {
		return false
	}
	_, err := os.Stat(s.path(ref))
	return err == nil
}

// RemoveIfOlder deletes the photo unless its mtime is at or after cutoff.
// The file is first moved aside and checked again there: a Put that
// refreshed it before the move gets it back, a Put that comes after the
// move finds it missing and writes it anew.
func (s *Store) RemoveIfOlder(ref string, cutoff time.Time) (bool, error) {
	if !ValidRef(ref) {
		return false, models.ErrNotFound
	}
	final := s.path(ref)

	info, err := os.Stat(final)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "stat photo")
	}
	if !info.ModTime().Before(cutoff) {
		return false, nil
	}

	aside := filepath.Join(s.root, "tmp", ref+".sweep")
	if err := os.Rename(final, aside); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrap(err, "move photo aside")
	}
	if info, err := os.Stat(aside); err == nil && !info.ModTime().Before(cutoff) {
		if err := os.Rename(aside, final); err != nil {
			return false, errors.Wrap(err, "restore photo")
		}
		return false, nil
	}
	if err := os.Remove(aside); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, errors.Wrap(err, "remove photo")
	}
	return true, nil
}

// Walk calls fn for every stored photo. Files that are not photos (temp
// files, strays) are skipped.
func (s *Store) Walk(fn func(ref string, modTime time.Time) error) error {
	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "tmp" {
				return filepath.SkipDir
			}
			return nil
		}
		if !ValidRef(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		return fn(d.Name(), info.ModTime())
	})
}

// ContentType maps a ref back to its MIME type.
func ContentType(ref string) string {
	ext := strings.TrimPrefix(filepath.Ext(ref), ".")
	for ct, e := range extByType {
		if e == ext {
			return ct
		}
	}
	return "application/octet-stream"
}

// DecodeInline accepts raw base64 or a data URL ("data:image/png;base64,...").
func DecodeInline(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 || !strings.HasSuffix(s[:i], ";base64") {
			return nil, models.ErrInvalidPhoto
		}
		s = s[i+1:]
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, models.ErrInvalidPhoto
		}
	}
	return b, nil
}
