package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"designpro/internal/apperrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageSize is 2 MiB, inclusive.
const MaxImageSize = 2 * 1024 * 1024

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
}

// Upload is an uploaded file as the services see it.
type Upload struct {
	Filename string
	Size     int64
	Data     []byte
}

// FromFileHeader reads at most MaxImageSize+1 bytes; Size keeps the size the
// client declared so oversize uploads are rejected without buffering them.
func FromFileHeader(fh *multipart.FileHeader) (*Upload, error) {
	u := &Upload{Filename: fh.Filename, Size: fh.Size}
	if fh.Size > MaxImageSize {
		return u, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	u.Data = data
	if int64(len(data)) > u.Size {
		u.Size = int64(len(data))
	}
	return u, nil
}

// ValidateImage checks size first, then extension.
func ValidateImage(u *Upload, field string) error {
	if u == nil {
		return nil
	}
	if u.Size > MaxImageSize {
		return apperrors.NewValidation(field, "Размер файла не должен превышать 2MB")
	}
	ext := strings.ToLower(filepath.Ext(u.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return apperrors.NewValidation(field, "Поддерживаются только форматы: JPG, JPEG, PNG, BMP")
	}
	return nil
}

// Store persists opaque image blobs and hands back a reference usable as URL.
type Store interface {
	Save(ctx context.Context, data []byte, nameHint string) (string, error)
	Remove(ctx context.Context, ref string) error
}

// LocalStore keeps files under Root and serves them under URLPrefix.
type LocalStore struct {
	Root      string
	URLPrefix string
}

func NewLocalStore(root, urlPrefix string) *LocalStore {
	return &LocalStore{Root: root, URLPrefix: strings.TrimRight(urlPrefix, "/")}
}

// Save writes data to <Root>/<dir of nameHint>/<uuid><ext>.
func (s *LocalStore) Save(ctx context.Context, data []byte, nameHint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := path.Dir(path.Clean("/" + filepath.ToSlash(nameHint)))
	dir = strings.TrimPrefix(dir, "/")
	name := uuid.NewString() + strings.ToLower(path.Ext(nameHint))
	rel := path.Join(dir, name)

	full := filepath.Join(s.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return s.URLPrefix + "/" + rel, nil
}

// Remove deletes a file previously returned by Save. Unknown refs are ignored.
func (s *LocalStore) Remove(ctx context.Context, ref string) error {
	rel, ok := strings.CutPrefix(ref, s.URLPrefix+"/")
	if !ok || rel == "" || strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}

// Discard removes files no row references any more. Failures are logged,
// not returned.
func Discard(ctx context.Context, st Store, log *zap.Logger, refs ...string) {
	if st == nil {
		return
	}
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := st.Remove(ctx, ref); err != nil {
			log.Warn("failed to remove image", zap.String("ref", ref), zap.Error(err))
		}
	}
}
