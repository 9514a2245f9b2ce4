package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// NewStore 以 <basePath>/<appID> 为缓存目录构建磁盘缓存，整个进程复用一份实例。
func NewStore(basePath, appID string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}
	if appID == "" {
		return nil, errors.New("app id required")
	}
	if filepath.Base(appID) != appID || appID == "." || appID == ".." {
		return nil, fmt.Errorf("app id must be a single path element: %q", appID)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	dir := filepath.Join(abs, appID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return &fileStore{
		dir:   dir,
		locks: make(map[string]*entryLock),
	}, nil
}

// fileStore 通过 entryLock 避免同一 Locator 并发写入。
type fileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Dir() string {
	return s.dir
}

func (s *fileStore) Resolve(locator Locator) (string, error) {
	_ = os.MkdirAll(s.dir, 0o755)
	return s.entryPath(locator)
}

func (s *fileStore) Exists(locator Locator) bool {
	filePath, err := s.Resolve(locator)
	if err != nil {
		return false
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func (s *fileStore) Get(ctx context.Context, locator Locator) (*ReadResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	filePath, err := s.entryPath(locator)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	entry := Entry{
		Locator:   locator,
		FilePath:  filePath,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}

	return &ReadResult{
		Entry:  entry,
		Reader: f,
	}, nil
}

func (s *fileStore) Put(ctx context.Context, locator Locator, body io.Reader, opts PutOptions) (*Entry, error) {
	filePath, err := s.Resolve(locator)
	if err != nil {
		return nil, err
	}

	unlock := s.lockEntry(filePath)
	defer unlock()

	pending, err := renameio.NewPendingFile(filePath, renameio.WithPermissions(0o644))
	if err != nil {
		return nil, fmt.Errorf("create pending cache file: %w", err)
	}
	// Cleanup 在 CloseAtomicallyReplace 成功后是空操作。
	defer func() { _ = pending.Cleanup() }()

	written, err := copyWithContext(ctx, pending, body)
	if err != nil {
		return nil, err
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return nil, fmt.Errorf("replace cache file: %w", err)
	}

	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Now().UTC()
	}
	if err := os.Chtimes(filePath, modTime, modTime); err != nil {
		return nil, err
	}

	entry := Entry{
		Locator:   locator,
		FilePath:  filePath,
		SizeBytes: written,
		ModTime:   modTime,
	}
	return &entry, nil
}

func (s *fileStore) lockEntry(key string) func() {
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

func (s *fileStore) entryPath(locator Locator) (string, error) {
	key, err := locator.Key()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key), nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
