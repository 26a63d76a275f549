// Package object abstracts blob storage for uploaded files (avatars,
// session resources) behind a bucket+path interface.
package object

import (
	"io"
	"io/ioutil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("object not found")

// Store is any blob store addressable by bucket and path.
type Store interface {
	Upload(bucket, objPath string, r io.Reader) error
	PublicURL(bucket, objPath string) string
	Delete(bucket, objPath string) error
}

// diskStore keeps objects on the local filesystem under root/bucket/path
// and serves them from a public base URL.
type diskStore struct {
	root    string
	baseURL string
}

var _ Store = (*diskStore)(nil)

func NewDiskStore(root, baseURL string) *diskStore {
	return &diskStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// fsPath resolves bucket/objPath under root, refusing path traversal.
func (s *diskStore) fsPath(bucket, objPath string) (string, error) {
	clean := path.Clean("/" + objPath)
	if clean == "/" {
		return "", errors.New("empty object path")
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(clean)), nil
}

func (s *diskStore) Upload(bucket, objPath string, r io.Reader) error {
	fp, err := s.fsPath(bucket, objPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return errors.Wrap(err, "creating object dir")
	}

	content, err := ioutil.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading object content")
	}
	if err := ioutil.WriteFile(fp, content, 0o644); err != nil {
		return errors.Wrap(err, "writing object")
	}
	return nil
}

func (s *diskStore) PublicURL(bucket, objPath string) string {
	clean := strings.TrimLeft(path.Clean("/"+objPath), "/")
	return s.baseURL + "/" + url.PathEscape(bucket) + "/" + clean
}

func (s *diskStore) Delete(bucket, objPath string) error {
	fp, err := s.fsPath(bucket, objPath)
	if err != nil {
		return err
	}
	if err := os.Remove(fp); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return errors.Wrap(err, "deleting object")
	}
	return nil
}
