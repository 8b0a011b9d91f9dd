package persist

import (
	"errors"
	"fmt"
	"github.com/freerahn/stockblog/lib/db"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// --------------------------------------------------------------------------
// Core persist structure
// --------------------------------------------------------------------------

// persistImpl wraps another KVDB and writes a full snapshot of it to a file
// before a write returns. A write whose snapshot cannot be written is rolled back.
type persistImpl struct {
	inner db.KVDB
	path  string

	mu     sync.Mutex // serializes writes and snapshot files
	closed bool
}

// Open returns a durable KVDB backed by the file at path. If the file exists, its
// snapshot is loaded into inner. The parent directory is created if needed.
func Open(path string, inner db.KVDB) (db.KVDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	p := &persistImpl{inner: inner, path: path}

	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return p, nil
	case err != nil:
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	if err := inner.Load(f); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", path, err)
	}
	return p, nil
}

// flush writes the inner snapshot to a temp file and renames it over the target
func (p *persistImpl) flush() error {
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if err := p.inner.Save(tmp); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// restore puts key back into the state it had before a failed write
func (p *persistImpl) restore(key string, old []byte, existed bool, writeIndex uint64) {
	if existed {
		_ = p.inner.Set(key, old, writeIndex)
	} else {
		_ = p.inner.Delete(key, writeIndex)
	}
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

func (p *persistImpl) Set(key string, value []byte, writeIndex uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return db.ErrClosed
	}

	old, existed := p.inner.Get(key)
	if err := p.inner.Set(key, value, writeIndex); err != nil {
		return err
	}
	if err := p.flush(); err != nil {
		p.restore(key, old, existed, writeIndex)
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

func (p *persistImpl) Delete(key string, writeIndex uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return db.ErrClosed
	}

	old, existed := p.inner.Get(key)
	if !existed {
		return nil
	}
	if err := p.inner.Delete(key, writeIndex); err != nil {
		return err
	}
	if err := p.flush(); err != nil {
		p.restore(key, old, existed, writeIndex)
		return fmt.Errorf("persist delete %s: %w", key, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

func (p *persistImpl) Get(key string) ([]byte, bool) {
	return p.inner.Get(key)
}

func (p *persistImpl) Has(key string) bool {
	return p.inner.Has(key)
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

func (p *persistImpl) Save(w io.Writer) error {
	return p.inner.Save(w)
}

// Load replaces the content and writes it to the snapshot file
func (p *persistImpl) Load(r io.Reader) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.inner.Load(r); err != nil {
		return err
	}
	return p.flush()
}

// --------------------------------------------------------------------------
// Features and Metadata
// --------------------------------------------------------------------------

func (p *persistImpl) SupportsFeature(feature db.Feature) bool {
	return feature&^db.FeatureDurable == 0 || p.inner.SupportsFeature(feature&^db.FeatureDurable)
}

func (p *persistImpl) GetInfo() db.DatabaseInfo {
	info := p.inner.GetInfo()
	info.Metadata = &struct {
		Path   string      `json:"path"`
		Engine string      `json:"engine"`
		Inner  interface{} `json:"inner"`
	}{
		Path:   p.path,
		Engine: string(info.DbType),
		Inner:  info.Metadata,
	}
	info.DbType = db.ImplPersist
	info.SupportedFeatures = append(info.SupportedFeatures, db.FeatureDurable)
	return info
}

func (p *persistImpl) SetWriteIdx(index uint64) {
	p.inner.SetWriteIdx(index)
}

func (p *persistImpl) WriteIdx() uint64 {
	return p.inner.WriteIdx()
}

func (p *persistImpl) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.inner.Close()
}
