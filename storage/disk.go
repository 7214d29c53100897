package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"social-chat/contract"
	"social-chat/domain/chat"
	"social-chat/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	sniffLength          = 512
	DefaultMaxUploadSize = 20 << 20
)

// DiskBlobStore keeps uploaded media as flat files named after their reference.
// Only images and videos are accepted, the kind is derived from the sniffed content
// and never from the client supplied filename.
type DiskBlobStore struct {
	dir      string
	baseURL  string
	maxBytes int64
	log      *slog.Logger
}

func NewDiskBlobStore(dir, baseURL string, maxBytes int64, log *slog.Logger) (*DiskBlobStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create media directory %s: %w", dir, err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadSize
	}
	return &DiskBlobStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes, log: log}, nil
}

func (s *DiskBlobStore) Store(ctx context.Context, filename string, r io.Reader) (contract.StoredMedia, error) {
	if err := ctx.Err(); err != nil {
		return contract.StoredMedia{}, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return contract.StoredMedia{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	size, err := io.Copy(tmp, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return contract.StoredMedia{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	switch {
	case size == 0:
		return contract.StoredMedia{}, fmt.Errorf("%w: empty upload", errors.ErrValidation)
	case size > s.maxBytes:
		return contract.StoredMedia{}, fmt.Errorf("%w: upload exceeds %d bytes", errors.ErrValidation, s.maxBytes)
	}

	// Cursor needs to be at the beginning for sniffing
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return contract.StoredMedia{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	sniffBuf := make([]byte, sniffLength)
	n, err := io.ReadFull(tmp, sniffBuf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return contract.StoredMedia{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	detected := mimetype.Detect(sniffBuf[:n])
	kind, err := kindOf(detected)
	if err != nil {
		s.log.Debug("Upload rejected", "filename", filename, "mime_type", detected.String())
		return contract.StoredMedia{}, err
	}

	ref := chat.MediaRef(uuid.NewString() + detected.Extension())
	if err := tmp.Close(); err != nil {
		return contract.StoredMedia{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	if err := os.Rename(tmpPath, s.path(ref)); err != nil {
		return contract.StoredMedia{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	committed = true

	s.log.Debug("Media stored", "ref", ref, "mime_type", detected.String(), "size", size)
	return contract.StoredMedia{Ref: ref, Kind: kind, MimeType: detected.String(), Size: size}, nil
}

// Open returns the media content and its sniffed MIME type.
func (s *DiskBlobStore) Open(ctx context.Context, ref chat.MediaRef) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if err := validRef(ref); err != nil {
		return nil, "", err
	}
	f, err := os.Open(s.path(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: media %s", errors.ErrNotFound, ref)
		}
		return nil, "", fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	detected, err := mimetype.DetectReader(f)
	if err != nil {
		_ = f.Close()
		return nil, "", fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, "", fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return f, detected.String(), nil
}

// URLFor builds the public URL under which the media is served.
func (s *DiskBlobStore) URLFor(ref chat.MediaRef) string {
	if ref == "" {
		return ""
	}
	return s.baseURL + "/" + url.PathEscape(string(ref))
}

func (s *DiskBlobStore) Delete(ctx context.Context, ref chat.MediaRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validRef(ref); err != nil {
		return err
	}
	if err := os.Remove(s.path(ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}

func (s *DiskBlobStore) path(ref chat.MediaRef) string {
	return filepath.Join(s.dir, string(ref))
}

// validRef refuses anything that could escape the media directory.
func validRef(ref chat.MediaRef) error {
	name := string(ref)
	if name == "" || strings.HasPrefix(name, ".") || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid media reference %q", errors.ErrValidation, name)
	}
	return nil
}

func kindOf(detected *mimetype.MIME) (chat.Kind, error) {
	for m := detected; m != nil; m = m.Parent() {
		switch {
		case strings.HasPrefix(m.String(), "image/"):
			return chat.KindImage, nil
		case strings.HasPrefix(m.String(), "video/"):
			return chat.KindVideo, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported media type %s", errors.ErrValidation, detected.String())
}
