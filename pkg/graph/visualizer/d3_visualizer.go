package visualizer

import (
	"bytes"
	"html/template"
	"os"
	"path/filepath"

	"github.com/athapong/ndex-mcp/pkg/graph"
)

// The HTML template for D3.js visualization
const d3Template = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <script src="https://d3js.org/d3.v7.min.js"></script>
    <style>
        body { margin: 0; font-family: Arial, sans-serif; }
        #graph { width: 100%; height: 100vh; background-color: #fafafa; }
        .node { stroke: #fff; stroke-width: 1.5px; }
        .link { stroke: #888; stroke-opacity: 0.6; }
        .link.cited { stroke: #c0392b; }
        .node-label { font-size: 10px; pointer-events: none; }
        .controls {
            position: absolute; top: 10px; left: 10px;
            background-color: rgba(255,255,255,0.85);
            padding: 10px; border-radius: 5px;
            box-shadow: 0 0 10px rgba(0,0,0,0.1);
        }
    </style>
</head>
<body>
    <div id="graph"></div>
    <div class="controls">
        <h3>{{.Title}}</h3>
        <p>Nodes: {{.NodeCount}}, Edges: {{.EdgeCount}}, Citations: {{.CitationCount}}</p>
        <div>
            <label for="predicate-filter">Filter by predicate:</label>
            <select id="predicate-filter">
                <option value="all">All predicates</option>
            </select>
        </div>
    </div>

    <script>
        const graphData = {{.Data}};

        const simulation = d3.forceSimulation(graphData.nodes)
            .force("link", d3.forceLink(graphData.edges).id(d => d.id).distance(120))
            .force("charge", d3.forceManyBody().strength(-300))
            .force("center", d3.forceCenter(window.innerWidth / 2, window.innerHeight / 2));

        const svg = d3.select("#graph").append("svg")
            .attr("width", "100%").attr("height", "100%")
            .call(d3.zoom().on("zoom", (event) => g.attr("transform", event.transform)));
        const g = svg.append("g");

        const groups = [...new Set(graphData.nodes.map(n => n.group))];
        const color = d3.scaleOrdinal(d3.schemeCategory10).domain(groups);

        const predicates = [...new Set(graphData.edges.map(e => e.predicate))];
        predicates.forEach(p => d3.select("#predicate-filter").append("option").attr("value", p).text(p));

        const link = g.append("g").selectAll("line").data(graphData.edges).enter()
            .append("line")
            .attr("class", d => d.citations > 0 ? "link cited" : "link")
            .attr("stroke-width", d => 1 + Math.sqrt(d.citations + d.supports));
        link.append("title").text(d => d.predicate);

        const node = g.append("g").selectAll("circle").data(graphData.nodes).enter()
            .append("circle")
            .attr("class", "node")
            .attr("r", 8)
            .attr("fill", d => color(d.group))
            .call(d3.drag().on("start", dragstarted).on("drag", dragged).on("end", dragended));
        node.append("title").text(d => d.term ? d.label + "\n" + d.term : d.label);

        const label = g.append("g").selectAll("text").data(graphData.nodes).enter()
            .append("text")
            .attr("class", "node-label")
            .attr("dx", 12).attr("dy", ".35em")
            .text(d => d.label);

        simulation.on("tick", () => {
            link.attr("x1", d => d.source.x).attr("y1", d => d.source.y)
                .attr("x2", d => d.target.x).attr("y2", d => d.target.y);
            node.attr("cx", d => d.x).attr("cy", d => d.y);
            label.attr("x", d => d.x).attr("y", d => d.y);
        });

        d3.select("#predicate-filter").on("change", function() {
            const selected = this.value;
            const shown = e => selected === "all" || e.predicate === selected;
            link.style("visibility", d => shown(d) ? "visible" : "hidden");
            const ends = new Set();
            graphData.edges.filter(shown).forEach(e => { ends.add(e.source.id); ends.add(e.target.id); });
            const visible = d => selected === "all" || ends.has(d.id);
            node.style("visibility", d => visible(d) ? "visible" : "hidden");
            label.style("visibility", d => visible(d) ? "visible" : "hidden");
        });

        function dragstarted(event, d) {
            if (!event.active) simulation.alphaTarget(0.3).restart();
            d.fx = d.x; d.fy = d.y;
        }
        function dragged(event, d) { d.fx = event.x; d.fy = event.y; }
        function dragended(event, d) {
            if (!event.active) simulation.alphaTarget(0);
            d.fx = null; d.fy = null;
        }
    </script>
</body>
</html>
`

var page = template.Must(template.New("d3").Parse(d3Template))

// ViewNode is a network node as drawn on the page
type ViewNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Term  string `json:"term,omitempty"`
	Group string `json:"group"`
}

// ViewEdge is a network edge as drawn on the page
type ViewEdge struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Predicate string `json:"predicate"`
	Citations int    `json:"citations"`
	Supports  int    `json:"supports"`
}

// View is the page model of a network
type View struct {
	Nodes []ViewNode `json:"nodes"`
	Edges []ViewEdge `json:"edges"`
}

// NewView lays out the nodes and edges of a network. Nodes are grouped by the
// namespace prefix of the term they represent.
func NewView(n *graph.Network) View {
	view := View{
		Nodes: make([]ViewNode, 0, len(n.Nodes)),
		Edges: make([]ViewEdge, 0, len(n.Edges)),
	}
	for _, id := range graph.SortedKeys(n.Nodes) {
		nd := n.Nodes[id]
		vn := ViewNode{ID: id, Label: n.NodeLabel(id), Group: "unbound"}
		if nd.Represents != "" {
			vn.Term = n.TermLabel(nd.Represents)
			vn.Group = group(n, nd.Represents)
		}
		view.Nodes = append(view.Nodes, vn)
	}
	for _, id := range graph.SortedKeys(n.Edges) {
		e := n.Edges[id]
		if _, ok := n.Nodes[e.Subject]; !ok {
			continue
		}
		if _, ok := n.Nodes[e.Object]; !ok {
			continue
		}
		view.Edges = append(view.Edges, ViewEdge{
			ID:        id,
			Source:    e.Subject,
			Target:    e.Object,
			Predicate: n.TermLabel(e.Predicate),
			Citations: len(e.Citations),
			Supports:  len(e.Supports),
		})
	}
	return view
}

func group(n *graph.Network, termID string) string {
	t, ok := n.Terms[termID]
	if !ok {
		return "unbound"
	}
	if t.Variant() == graph.TermFunction {
		return "function"
	}
	if ns, ok := n.Namespaces[t.Namespace]; ok && ns.Prefix != "" {
		return ns.Prefix
	}
	return "base"
}

// D3Visualizer creates D3.js-based visualizations of networks
type D3Visualizer struct {
	outputPath string
}

// NewD3Visualizer creates a new D3.js visualizer
func NewD3Visualizer(outputPath string) *D3Visualizer {
	return &D3Visualizer{
		outputPath: outputPath,
	}
}

// Render writes the HTML page for a network into buf
func Render(buf *bytes.Buffer, n *graph.Network) error {
	title := n.Name
	if title == "" {
		title = "Network"
	}
	return page.Execute(buf, struct {
		Title         string
		Data          View
		NodeCount     int
		EdgeCount     int
		CitationCount int
	}{
		Title:         title,
		Data:          NewView(n),
		NodeCount:     len(n.Nodes),
		EdgeCount:     len(n.Edges),
		CitationCount: len(n.Citations),
	})
}

// Visualize generates an HTML visualization of the network
func (v *D3Visualizer) Visualize(n *graph.Network) error {
	dir := filepath.Dir(v.outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return err
	}
	return os.WriteFile(v.outputPath, buf.Bytes(), 0644)
}
