package rtl

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"
	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/pkg/errors"
)

const graphName = "G"

//GraphvizFormats maps the figure types accepted by RenderFile to graphviz formats.
var GraphvizFormats = map[string]graphviz.Format{
	"png": graphviz.PNG,
	"svg": graphviz.SVG,
	"jpg": graphviz.JPG,
	"dot": graphviz.XDOT,
}

func nodeShape(node TreeNode) string {
	if node.IsLeaf() {
		return "box"
	}
	return "ellipse"
}

func recurrentDot(g *gographviz.Graph, tree Tree, nodeNumber int, parentName string) error {
	node := tree.TreeNodes[nodeNumber]
	name := strconv.Itoa(node.TreeNodeId)

	err := g.AddNode(graphName, name, map[string]string{
		"label": strconv.Quote(node.GraphDescription()),
		"shape": nodeShape(node),
	})
	if err != nil {
		return err
	}
	if parentName != "" {
		if err := g.AddEdge(parentName, name, true, nil); err != nil {
			return err
		}
	}

	if node.IsLeaf() {
		return nil
	}
	if err := recurrentDot(g, tree, node.LeftIndex, name); err != nil {
		return err
	}
	return recurrentDot(g, tree, node.RightIndex, name)
}

//ToDot describes the tree as a directed graph in the DOT language: one labelled node per
//tree node, boxes for leaves, and one edge per parent-child link.
func (tree Tree) ToDot() (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName(graphName); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}
	if err := recurrentDot(g, tree, 0, ""); err != nil {
		return "", errors.Wrap(err, "can't describe the tree")
	}
	return g.String(), nil
}

func recurrentDraw(g *cgraph.Graph, tree Tree, nodeNumber int, parentNode *cgraph.Node) error {
	node := tree.TreeNodes[nodeNumber]
	currentNode, err := g.CreateNode(fmt.Sprint(node.TreeNodeId))
	if err != nil {
		return err
	}

	if parentNode != nil {
		if _, err := g.CreateEdge("", parentNode, currentNode); err != nil {
			return err
		}
	}

	currentNode.Set("label", node.GraphDescription())
	currentNode.Set("shape", nodeShape(node))
	if node.IsLeaf() {
		return nil
	}
	if err := recurrentDraw(g, tree, node.LeftIndex, currentNode); err != nil {
		return err
	}
	return recurrentDraw(g, tree, node.RightIndex, currentNode)
}

//DrawGraph lays the tree out as a graphviz graph. The caller closes both returned objects.
func (tree Tree) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph, error) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	if err != nil {
		graphViz.Close()
		return nil, nil, err
	}

	if err := recurrentDraw(graph, tree, 0, nil); err != nil {
		graph.Close()
		graphViz.Close()
		return nil, nil, err
	}
	return graphViz, graph, nil
}

//RenderFile renders the tree into filename. figureType is one of the keys of GraphvizFormats.
func (tree Tree) RenderFile(figureType, filename string) error {
	format, ok := GraphvizFormats[figureType]
	if !ok {
		return errors.Errorf("unknown figure type %q", figureType)
	}
	graphViz, graph, err := tree.DrawGraph()
	if err != nil {
		return errors.Wrap(err, "can't draw the tree")
	}
	defer func() {
		graph.Close()
		graphViz.Close()
	}()
	return errors.Wrapf(graphViz.RenderFilename(graph, format, filename), "can't render %s", filename)
}
