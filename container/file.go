package container

import (
	"github.com/go-git/go-billy/v5"
)

// FileStorage is a Storage backed by a file on a billy filesystem.
type FileStorage struct {
	*ReaderAtStorage
	f billy.File
}

// OpenFile opens name on fs for use as container storage. The caller must
// Close the returned storage.
func OpenFile(fs billy.Filesystem, name string) (*FileStorage, error) {
	fi, err := fs.Stat(name)
	if err != nil {
		return nil, err
	}
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	ras, err := NewReaderAtStorage(f, fi.Size())
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileStorage{ReaderAtStorage: ras, f: f}, nil
}

func (s *FileStorage) Close() error {
	return s.f.Close()
}
