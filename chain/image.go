package chain

import (
	"slices"
	"sync/atomic"
)

var lastImageID atomic.Uint64

// Operation is one applied filter: a name identifying its semantics and its
// parameters.
type Operation struct {
	Name   string
	Params Params
}

// Image is an immutable description of an image: either a base payload or an
// input image with an ordered list of applied operations.
//
// Every Image carries a process-unique ID assigned at construction. Two
// references to the same Image share one ID, which is what the graph builder
// memoizes on.
type Image struct {
	id      uint64
	payload Payload
	input   *Image
	ops     []Operation
}

// New returns a base image wrapping p.
func New(p Payload) *Image {
	return &Image{id: lastImageID.Add(1), payload: p}
}

// Derive returns input with ops applied in order. Parameters are copied.
func Derive(input *Image, ops ...Operation) *Image {
	cp := make([]Operation, len(ops))
	for i, op := range ops {
		cp[i] = Operation{Name: op.Name, Params: op.Params.Clone()}
	}
	return &Image{id: lastImageID.Add(1), input: input, ops: cp}
}

// Apply returns a new image that is img with one more operation applied.
func (img *Image) Apply(name string, params Params) *Image {
	return Derive(img, Operation{Name: name, Params: params})
}

// ID returns the identity of img.
func (img *Image) ID() uint64 { return img.id }

// IsBase reports whether img is a base image.
func (img *Image) IsBase() bool { return img.input == nil && len(img.ops) == 0 }

// Payload returns the payload of a base image, or nil.
func (img *Image) Payload() Payload { return img.payload }

// Input returns the image the operations are applied to, or nil for a base
// image.
func (img *Image) Input() *Image { return img.input }

// Operations returns a copy of the applied operations, in order.
func (img *Image) Operations() []Operation { return slices.Clone(img.ops) }
