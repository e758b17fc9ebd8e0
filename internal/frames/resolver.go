package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
)

var ErrFrameMissing = errors.New("frame image missing")

// Resolver turns a frame id into a decoded, cacheable image handle.
type Resolver interface {
	Resolve(id ID) (image.Image, error)
}

// DirResolver reads frames named "<id><ext>" from a directory and keeps every
// decoded image for the life of the process.
type DirResolver struct {
	Dir string
	Ext string

	mu    sync.RWMutex
	cache map[ID]image.Image
}

func NewDirResolver(dir, ext string) *DirResolver {
	if ext == "" {
		ext = ".png"
	}
	return &DirResolver{Dir: dir, Ext: ext, cache: map[ID]image.Image{}}
}

// Path is the on-disk location for id.
func (r *DirResolver) Path(id ID) string {
	return filepath.Join(r.Dir, strconv.Itoa(int(id))+r.Ext)
}

func (r *DirResolver) Resolve(id ID) (image.Image, error) {
	r.mu.RLock()
	img, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return img, nil
	}

	f, err := os.Open(r.Path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %d", ErrFrameMissing, id)
		}
		return nil, err
	}
	defer f.Close()

	img, _, err = image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", id, err)
	}

	r.mu.Lock()
	r.cache[id] = img
	r.mu.Unlock()
	return img, nil
}

// Preload resolves every id concurrently. The first failure cancels the rest
// and is returned; an absent keyframe is a configuration error.
func Preload(ctx context.Context, r Resolver, ids []ID, workers int) error {
	if workers <= 0 {
		workers = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := r.Resolve(id)
			return err
		})
	}
	return g.Wait()
}
