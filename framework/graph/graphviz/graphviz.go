// Package graphviz renders a binding registry as a GraphViz digraph of
// record-shaped nodes: the service name, the events it listens to and the
// events it raises, with an edge per requirement.
package graphviz

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/km-arc/go-ioc/framework/graph"
)

// eventsPerRow is how many event names share one record compartment.
const eventsPerRow = 4

var bareID = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Render returns the DOT source for every binding in r, in registration
// order, followed by a node for each required name that has no binding.
func Render(r graph.Registry) string {
	var sb strings.Builder
	sb.WriteString("digraph {\n    graph [rankdir = \"LR\"];\n")

	names := r.Names()
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
	}

	var unbound []string
	for _, name := range names {
		sb.WriteString("    " + Node(r, name) + "\n")

		b, _ := r.Lookup(name)
		for _, dep := range b.Requires {
			if !seen[dep] {
				seen[dep] = true
				unbound = append(unbound, dep)
			}
		}
	}
	for _, name := range unbound {
		sb.WriteString("    " + Node(r, name) + "\n")
	}

	sb.WriteString("}\n")
	return sb.String()
}

// Node renders one statement for name: the node and its outgoing edges.
func Node(r graph.Registry, name string) string {
	id := ID(name)

	b, ok := r.Lookup(name)
	if !ok {
		return fmt.Sprintf(`%s [ shape="record", label="%s | (instance)" ]`, id, escape(name))
	}

	label := escape(name) + listenerCompartment(b.EventListener) + sourceCompartment(b.EventSource)

	var edges strings.Builder
	for _, dep := range b.Requires {
		edges.WriteString("; " + id + " -> " + ID(dep))
	}
	return fmt.Sprintf(`%s [ shape="record", label="%s" ]%s`, id, label, edges.String())
}

var idEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// ID returns name as a DOT identifier, quoting it when needed.
func ID(name string) string {
	if bareID.MatchString(name) {
		return name
	}
	return `"` + idEscaper.Replace(name) + `"`
}

// listenerCompartment renders " | \> A B C D | \> E" for sorted events.
func listenerCompartment(events []string) string {
	if len(events) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(` | \>`)
	for i, event := range sorted(events) {
		sb.WriteString(" " + escape(event))
		if i%eventsPerRow == eventsPerRow-1 && i != len(events)-1 {
			sb.WriteString(` | \>`)
		}
	}
	return sb.String()
}

// sourceCompartment renders " | A B C D \> | E \>" for sorted events.
func sourceCompartment(events []string) string {
	if len(events) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(" |")
	for i, event := range sorted(events) {
		sb.WriteString(" " + escape(event))
		if i%eventsPerRow == eventsPerRow-1 && i != len(events)-1 {
			sb.WriteString(` \> |`)
		}
	}
	sb.WriteString(` \>`)
	return sb.String()
}

func sorted(events []string) []string {
	out := append([]string(nil), events...)
	sort.Strings(out)
	return out
}

// escape protects characters with meaning inside record labels.
func escape(s string) string {
	return recordEscaper.Replace(s)
}

var recordEscaper = strings.NewReplacer(
	`"`, `\"`,
	`{`, `\{`,
	`}`, `\}`,
	`|`, `\|`,
	`<`, `\<`,
	`>`, `\>`,
)
