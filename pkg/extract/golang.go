// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

// GoExtractor extracts definitions and calls from Go source using
// tree-sitter's golang grammar. Each instance owns its own *sitter.Parser,
// so a single GoExtractor is safe for concurrent use from a worker pool as long as
// Extract is not called re-entrantly on the same instance from two
// goroutines at once (callers are expected to create one extractor per
// worker, not to share one across workers).
type GoExtractor struct {
	parser *sitter.Parser
}

// NewGoExtractor returns a ready-to-use Go extractor.
func NewGoExtractor() *GoExtractor {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &GoExtractor{parser: p}
}

func (g *GoExtractor) Language() Language { return Go }

func (g *GoExtractor) Extract(filePath string, content []byte) (graph.SubGraph, error) {
	tree, err := g.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return graph.SubGraph{}, &ParseError{FilePath: filePath, Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return graph.SubGraph{}, &ParseError{FilePath: filePath, Err: fmt.Errorf("nil parse tree")}
	}

	pkgName := goPackageName(root, content)

	ctx := &goWalkCtx{
		content:  content,
		filePath: filePath,
		pkg:      pkgName,
		nameToID: make(map[string]string),
	}
	walkGoDefinitions(root, ctx)

	var edges []graph.Edge
	for _, d := range ctx.defs {
		edges = append(edges, extractGoCalls(d.node, content, d.entity.ID, ctx.nameToID)...)
	}

	nodes := make([]graph.Node, len(ctx.defs))
	for i, d := range ctx.defs {
		nodes[i] = d.entity
	}

	return graph.SubGraph{Nodes: nodes, Edges: edges}, nil
}

type goDef struct {
	node   *sitter.Node // the definition's body-bearing node (func/method)
	entity graph.Node
}

type goWalkCtx struct {
	content     []byte
	filePath    string
	pkg         string
	anonCounter int
	nameToID    map[string]string
	defs        []goDef
}

func walkGoDefinitions(node *sitter.Node, ctx *goWalkCtx) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_declaration":
		if n := goFunctionNode(node, ctx, graph.KindFunction); n != nil {
			return
		}
	case "method_declaration":
		if n := goFunctionNode(node, ctx, graph.KindMethod); n != nil {
			return
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkGoDefinitions(node.Child(i), ctx)
	}
}

// goFunctionNode builds a graph.Node for a function_declaration or
// method_declaration node and records it on ctx. It returns a non-nil
// sentinel purely so the caller's switch can short-circuit descending into
// the definition's own subtree redundantly via the generic recursion below
// (the function/method body is still walked for calls separately via
// extractGoCalls).
func goFunctionNode(node *sitter.Node, ctx *goWalkCtx, kind graph.NodeKind) *graph.Node {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nameNode.Content(ctx.content)

	if kind == graph.KindMethod {
		if recv := node.ChildByFieldName("receiver"); recv != nil {
			if t := goReceiverTypeName(recv, ctx.content); t != "" {
				name = t + "." + name
			}
		}
	}

	startPoint := node.StartPoint()
	line := int(startPoint.Row) + 1
	id := graph.BuildNodeID(ctx.filePath, name, line)

	sig := goSignature(node, ctx.content)
	if kind == graph.KindFunction && isGoHandlerSignature(sig) {
		kind = graph.KindHandler
	}

	n := graph.Node{
		ID:          id,
		Name:        name,
		Kind:        kind,
		FilePath:    ctx.filePath,
		Line:        line,
		EndLine:     int(node.EndPoint().Row) + 1,
		Package:     ctx.pkg,
		Language:    string(Go),
		Signature:   truncateSignature(sig),
		Exported:    len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z',
		BranchCount: countGoBranches(node),
	}

	ctx.nameToID[nameNode.Content(ctx.content)] = id
	ctx.defs = append(ctx.defs, goDef{node: node, entity: n})

	// Recurse into the body for nested func literals, which also become
	// first-class nodes (named "$anon_N" per the anonymous-function
	// convention). A call inside a literal is recorded on the literal's node
	// and also on the outer function, whose body walk includes the literal.
	if body := node.ChildByFieldName("body"); body != nil {
		walkGoFuncLiterals(body, ctx)
	}
	return &n
}

func walkGoFuncLiterals(node *sitter.Node, ctx *goWalkCtx) {
	if node == nil {
		return
	}
	if node.Type() == "func_literal" {
		ctx.anonCounter++
		name := fmt.Sprintf("$anon_%d", ctx.anonCounter)
		line := int(node.StartPoint().Row) + 1
		id := graph.BuildNodeID(ctx.filePath, name, line)
		n := graph.Node{
			ID:        id,
			Name:      name,
			Kind:      graph.KindFunction,
			FilePath:  ctx.filePath,
			Line:      line,
			EndLine:   int(node.EndPoint().Row) + 1,
			Package:   ctx.pkg,
			Language:  string(Go),
			Signature: truncateSignature(goSignature(node, ctx.content)),
		}
		ctx.defs = append(ctx.defs, goDef{node: node, entity: n})
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkGoFuncLiterals(node.Child(i), ctx)
	}
}

func goReceiverTypeName(receiver *sitter.Node, content []byte) string {
	for i := 0; i < int(receiver.ChildCount()); i++ {
		child := receiver.Child(i)
		if child.Type() == "parameter_declaration" {
			typeNode := child.ChildByFieldName("type")
			if typeNode == nil {
				continue
			}
			return goBaseTypeName(typeNode, content)
		}
	}
	return ""
}

func goBaseTypeName(typeNode *sitter.Node, content []byte) string {
	switch typeNode.Type() {
	case "pointer_type":
		for i := 0; i < int(typeNode.ChildCount()); i++ {
			child := typeNode.Child(i)
			if child.Type() != "*" {
				return goBaseTypeName(child, content)
			}
		}
	case "generic_type":
		if tn := typeNode.ChildByFieldName("type"); tn != nil {
			return goBaseTypeName(tn, content)
		}
	case "type_identifier":
		return typeNode.Content(content)
	}
	return typeNode.Content(content)
}

// isGoHandlerSignature reports whether sig has the shape of an HTTP
// handler function: a parameter list carrying both a response writer and a
// request, the way net/http, gorilla/mux, and most framework adapters
// shape the functions they route to.
func isGoHandlerSignature(sig string) bool {
	hasWriter := strings.Contains(sig, "http.ResponseWriter") || strings.Contains(sig, "ResponseWriter")
	hasRequest := strings.Contains(sig, "*http.Request") || strings.Contains(sig, "*Request")
	return hasWriter && hasRequest
}

func goSignature(node *sitter.Node, content []byte) string {
	nameNode := node.ChildByFieldName("name")
	params := node.ChildByFieldName("parameters")
	result := node.ChildByFieldName("result")

	sig := "func "
	if nameNode != nil {
		sig += nameNode.Content(content)
	}
	if params != nil {
		sig += params.Content(content)
	}
	if result != nil {
		sig += " " + result.Content(content)
	}
	return sig
}

// countGoBranches counts if/for/switch-case/&&/|| nodes within a subtree,
// the input to analyze's cyclomatic complexity estimate.
func countGoBranches(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	switch node.Type() {
	case "if_statement", "for_statement", "expression_case", "default_case", "communication_case":
		count++
	case "binary_expression":
		// The operator is an anonymous child node whose type is its token.
		if op := node.ChildByFieldName("operator"); op != nil && (op.Type() == "&&" || op.Type() == "||") {
			count++
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countGoBranches(node.Child(i))
	}
	return count
}

func extractGoCalls(fnNode *sitter.Node, content []byte, callerID string, nameToID map[string]string) []graph.Edge {
	body := fnNode.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var edges []graph.Edge
	walkGoCallExpressions(body, content, callerID, nameToID, &edges)
	return edges
}

func walkGoCallExpressions(node *sitter.Node, content []byte, callerID string, nameToID map[string]string, edges *[]graph.Edge) {
	if node == nil {
		return
	}
	if node.Type() == "call_expression" {
		if fnNode := node.ChildByFieldName("function"); fnNode != nil {
			name, kind := goCalleeName(fnNode, content)
			if name != "" {
				edge := graph.Edge{
					FromID: callerID,
					ToName: name,
					Kind:   kind,
					Line:   int(node.StartPoint().Row) + 1,
				}
				if id, ok := nameToID[name]; ok {
					edge.CalleeID = id
				}
				*edges = append(*edges, edge)
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkGoCallExpressions(node.Child(i), content, callerID, nameToID, edges)
	}
}

func goCalleeName(node *sitter.Node, content []byte) (string, graph.EdgeKind) {
	switch node.Type() {
	case "identifier":
		return node.Content(content), graph.Direct
	case "selector_expression":
		field := node.ChildByFieldName("field")
		if field == nil {
			return "", ""
		}
		operand := node.ChildByFieldName("operand")
		if operand != nil && operand.Type() == "identifier" {
			// pkg.Foo() or obj.Method() - either way we only have a name,
			// not a resolved receiver type, so this is a virtual edge.
			return operand.Content(content) + "." + field.Content(content), graph.Virtual
		}
		return field.Content(content), graph.Virtual
	case "parenthesized_expression":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() != "(" && child.Type() != ")" {
				return goCalleeName(child, content)
			}
		}
	}
	return "", ""
}

func goPackageName(root *sitter.Node, content []byte) string {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() == "package_clause" {
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Content(content)
			}
		}
	}
	return ""
}
