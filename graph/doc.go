// Package graph converts chain.Image trees into filter graphs: DAGs of
// operation and source nodes with computed extents and an execution order.
//
// Images reachable through several paths become one shared node. Output
// extents come from an ExtentRules table; operations without a rule pass
// their input extent through.
//
//	g, err := graph.Build(img)
//	if err != nil {
//		return err
//	}
//	for _, id := range g.Order {
//		fmt.Println(g.Node(id))
//	}
package graph
