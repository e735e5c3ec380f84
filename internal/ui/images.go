package ui

import (
	"image"

	"gioui.org/op/paint"
)

type cachedOp struct {
	src  image.Image
	op   paint.ImageOp
	used bool
}

// opCache memoizes image ops per key so a frame does not re-upload images
// it drew last frame. Keys not drawn during a frame are dropped by prune.
type opCache struct {
	ops map[string]*cachedOp
}

func newOpCache() *opCache {
	return &opCache{ops: make(map[string]*cachedOp)}
}

func (c *opCache) begin() {
	for _, e := range c.ops {
		e.used = false
	}
}

// op returns the op for img under key, rebuilding it when the image changed.
func (c *opCache) op(key string, img image.Image) paint.ImageOp {
	if e, ok := c.ops[key]; ok && e.src == img {
		e.used = true
		return e.op
	}
	e := &cachedOp{src: img, op: paint.NewImageOp(img), used: true}
	c.ops[key] = e
	return e.op
}

func (c *opCache) prune() int {
	n := 0
	for k, e := range c.ops {
		if !e.used {
			delete(c.ops, k)
			n++
		}
	}
	return n
}

func (c *opCache) Len() int { return len(c.ops) }
