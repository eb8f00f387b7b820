package filtergraph_test

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/gogpu/filtergraph"
	"github.com/gogpu/filtergraph/chain"
)

func Example() {
	e := filtergraph.New()
	defer e.Close()

	photo := chain.New(chain.ImageSource{Image: image.NewRGBA(image.Rect(0, 0, 640, 480))})
	out := photo.
		Cropped(chain.XYWH(0, 0, 320, 240)).
		Blurred(12).
		Over(chain.ConstantColor(chain.Color{R: 1, G: 1, B: 1, A: 1}))

	plan, err := e.Compile(context.Background(), out, 320, 240)
	if err != nil {
		log.Fatal(err)
	}
	defer e.Release(plan)

	fmt.Println(plan)
}

func ExampleEngine_Build() {
	e := filtergraph.New()
	defer e.Close()

	mask := chain.Generate("linearGradient", nil)
	photo := chain.New(chain.SolidColor{Color: chain.Color{R: 1, A: 1}})
	g, err := e.Build(photo.Masked(chain.ConstantColor(chain.Color{A: 1}), mask))
	if err != nil {
		log.Fatal(err)
	}
	for _, id := range g.Order {
		fmt.Println(g.Node(id))
	}
}
