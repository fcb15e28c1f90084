package position

import (
	"sync"

	"github.com/aniplay-cli/aniplay/filesystem"
	"github.com/aniplay-cli/aniplay/where"
	"github.com/metafates/gache"
)

// Backend is the persistence boundary of the store: a whole-blob key-value
// layer plus a same-origin change broadcast. The notification is a hint to
// refetch, never a payload of truth; subscribers re-read through the store.
type Backend interface {
	// ReadAll loads the complete persisted record set.
	ReadAll() (map[string]Record, error)

	// WriteAll atomically replaces the complete persisted record set.
	WriteAll(records map[string]Record) error

	// Notify broadcasts a change hint to all subscribers, synchronously on
	// the calling goroutine.
	Notify()

	// OnChange registers a subscriber for change hints.
	OnChange(fn func())
}

// FileBackend persists the record set as a JSON blob through gache on the
// virtualized filesystem, mirroring the browser's local-storage layout.
type FileBackend struct {
	cacher *gache.Cache[map[string]Record]

	mu   sync.Mutex
	subs []func()
}

// NewFileBackend creates a backend persisting to the canonical positions file.
func NewFileBackend() *FileBackend {
	return &FileBackend{
		cacher: gache.New[map[string]Record](
			&gache.Options{
				Path:       where.Positions(),
				FileSystem: &filesystem.GacheFs{},
			},
		),
	}
}

// ReadAll returns the persisted record set, or an empty set when nothing has
// been persisted yet.
func (b *FileBackend) ReadAll() (map[string]Record, error) {
	cached, expired, err := b.cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]Record), nil
	}
	return cached, nil
}

// WriteAll persists the record set.
func (b *FileBackend) WriteAll(records map[string]Record) error {
	return b.cacher.Set(records)
}

// Notify invokes every subscriber.
func (b *FileBackend) Notify() {
	b.mu.Lock()
	subs := append([]func(){}, b.subs...)
	b.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// OnChange registers a change subscriber.
func (b *FileBackend) OnChange(fn func()) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
}
