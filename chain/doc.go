// Package chain describes images declaratively.
//
// An [Image] is either a base image wrapping a [Payload] (decoded pixels, a
// solid color, raw RGBA data, a line of text) or an input image with an
// ordered list of applied operations. Operations are identified by name and
// carry [Params] whose values may themselves reference other images, which is
// how multi-input filters such as compositing are expressed:
//
//	photo := chain.New(chain.ImageSource{Image: img})
//	shadow := photo.Blurred(20).Transformed(f64.Aff3{1, 0, 8, 0, 1, 8})
//	out := photo.Over(shadow).Cropped(chain.XYWH(0, 0, 512, 512))
//
// Images are immutable and may be shared freely between chains; the graph
// builder turns shared sub-images into shared graph nodes.
package chain
