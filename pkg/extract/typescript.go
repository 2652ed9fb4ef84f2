// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

// TSExtractor handles TypeScript, TSX, and plain JavaScript/JSX — they
// share a grammar family and an almost identical node vocabulary for the
// constructs this module cares about (functions, arrow functions, methods,
// classes, interfaces, calls).
type TSExtractor struct {
	lang   Language
	parser *sitter.Parser
}

// NewTSExtractor returns an extractor for either TypeScript or JavaScript.
func NewTSExtractor(lang Language) *TSExtractor {
	p := sitter.NewParser()
	switch lang {
	case TypeScript:
		p.SetLanguage(typescript.GetLanguage())
	default:
		p.SetLanguage(javascript.GetLanguage())
	}
	return &TSExtractor{lang: lang, parser: p}
}

// NewTSXExtractor returns a TSX-flavored TypeScript extractor. It is not
// registered in ForLanguage, which parses .tsx files with the plain
// TypeScript grammar; it is available for callers that want JSX syntax
// parsed explicitly.
func NewTSXExtractor() *TSExtractor {
	p := sitter.NewParser()
	p.SetLanguage(tsx.GetLanguage())
	return &TSExtractor{lang: TypeScript, parser: p}
}

func (t *TSExtractor) Language() Language { return t.lang }

func (t *TSExtractor) Extract(filePath string, content []byte) (graph.SubGraph, error) {
	tree, err := t.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return graph.SubGraph{}, &ParseError{FilePath: filePath, Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return graph.SubGraph{}, &ParseError{FilePath: filePath, Err: fmt.Errorf("nil parse tree")}
	}

	ctx := &tsWalkCtx{content: content, filePath: filePath, lang: t.lang, nameToID: make(map[string]string)}
	walkTSDefinitions(root, ctx)

	var edges []graph.Edge
	for _, d := range ctx.defs {
		walkJSCallExpressions(d.node, content, d.entity.ID, ctx.nameToID, &edges)
	}

	nodes := make([]graph.Node, 0, len(ctx.defs)+1)
	nodes = append(nodes, tsModuleNode(filePath, t.lang, root))
	for _, d := range ctx.defs {
		nodes = append(nodes, d.entity)
	}
	return graph.SubGraph{Nodes: nodes, Edges: edges}, nil
}

// tsModuleNode builds the one KindModule node every file contributes,
// representing the file itself as a module (ES modules and CommonJS both
// treat one file as one module unit).
func tsModuleNode(filePath string, lang Language, root *sitter.Node) graph.Node {
	name := ModuleName(filePath)
	return graph.Node{
		ID:       graph.BuildNodeID(filePath, name, 1),
		Name:     name,
		Kind:     graph.KindModule,
		FilePath: filePath,
		Line:     1,
		EndLine:  int(root.EndPoint().Row) + 1,
		Language: string(lang),
		Exported: true,
	}
}

type tsDef struct {
	node   *sitter.Node
	entity graph.Node
}

type tsWalkCtx struct {
	content     []byte
	filePath    string
	lang        Language
	anonCounter int
	nameToID    map[string]string
	defs        []tsDef
}

func walkTSDefinitions(node *sitter.Node, ctx *tsWalkCtx) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_declaration":
		tsAddDef(node, ctx, node.ChildByFieldName("name"), graph.KindFunction, "")
	case "method_definition":
		className := tsEnclosingClassName(node, ctx.content)
		tsAddDef(node, ctx, node.ChildByFieldName("name"), graph.KindMethod, className)
	case "class_declaration":
		tsAddDef(node, ctx, node.ChildByFieldName("name"), graph.KindClass, "")
	case "interface_declaration":
		tsAddDef(node, ctx, node.ChildByFieldName("name"), graph.KindInterface, "")
	case "variable_declarator":
		if valueNode := node.ChildByFieldName("value"); valueNode != nil {
			vt := valueNode.Type()
			if vt == "arrow_function" || vt == "function_expression" || vt == "function" {
				tsAddDef(valueNode, ctx, node.ChildByFieldName("name"), graph.KindFunction, "")
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkTSDefinitions(node.Child(i), ctx)
	}
}

func tsAddDef(node *sitter.Node, ctx *tsWalkCtx, nameNode *sitter.Node, kind graph.NodeKind, prefix string) {
	var name string
	switch {
	case nameNode != nil:
		name = nameNode.Content(ctx.content)
	default:
		ctx.anonCounter++
		name = fmt.Sprintf("$anon_%d", ctx.anonCounter)
	}
	if prefix != "" {
		name = prefix + "." + name
	}
	if kind == graph.KindFunction && isJSHandlerParams(node, ctx.content) {
		kind = graph.KindHandler
	}

	line := int(node.StartPoint().Row) + 1
	id := graph.BuildNodeID(ctx.filePath, name, line)
	n := graph.Node{
		ID:       id,
		Name:     name,
		Kind:     kind,
		FilePath: ctx.filePath,
		Line:     line,
		EndLine:  int(node.EndPoint().Row) + 1,
		Language: string(ctx.lang),
		Exported: true, // JS/TS export-ness requires scanning for an `export`
		// modifier keyword sibling; left permissive (true) since this
		// module's query filter treats Exported as display metadata only.
		BranchCount: countJSBranches(node),
	}
	if nameNode != nil {
		ctx.nameToID[nameNode.Content(ctx.content)] = id
	}
	ctx.defs = append(ctx.defs, tsDef{node: node, entity: n})
}

// isJSHandlerParams reports whether node's parameter list has the
// (req, res[, next]) shape Express, Koa, and similar routers expect of a
// request handler.
func isJSHandlerParams(node *sitter.Node, content []byte) bool {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return false
	}
	var names []string
	for i := 0; i < int(params.ChildCount()); i++ {
		c := params.Child(i)
		switch c.Type() {
		case "identifier", "required_parameter", "optional_parameter":
			names = append(names, strings.ToLower(c.Content(content)))
		}
	}
	if len(names) < 2 {
		return false
	}
	return strings.Contains(names[0], "req") && strings.Contains(names[1], "res")
}

func tsEnclosingClassName(node *sitter.Node, content []byte) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "class_declaration" || p.Type() == "class" {
			if nameNode := p.ChildByFieldName("name"); nameNode != nil {
				return nameNode.Content(content)
			}
			return ""
		}
	}
	return ""
}

func countJSBranches(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	switch node.Type() {
	case "if_statement", "for_statement", "for_in_statement", "while_statement",
		"switch_case", "ternary_expression", "catch_clause":
		count++
	case "binary_expression":
		if op := node.ChildByFieldName("operator"); op != nil && (op.Type() == "&&" || op.Type() == "||") {
			count++
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countJSBranches(node.Child(i))
	}
	return count
}

func walkJSCallExpressions(node *sitter.Node, content []byte, callerID string, nameToID map[string]string, edges *[]graph.Edge) {
	if node == nil {
		return
	}
	if node.Type() == "call_expression" {
		if fnNode := node.ChildByFieldName("function"); fnNode != nil {
			name, kind := jsCalleeName(fnNode, content)
			if name != "" {
				edge := graph.Edge{FromID: callerID, ToName: name, Kind: kind, Line: int(node.StartPoint().Row) + 1}
				if id, ok := nameToID[name]; ok {
					edge.CalleeID = id
				}
				*edges = append(*edges, edge)
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkJSCallExpressions(node.Child(i), content, callerID, nameToID, edges)
	}
}

func jsCalleeName(node *sitter.Node, content []byte) (string, graph.EdgeKind) {
	switch node.Type() {
	case "identifier":
		return node.Content(content), graph.Direct
	case "member_expression":
		property := node.ChildByFieldName("property")
		if property == nil {
			return "", ""
		}
		object := node.ChildByFieldName("object")
		if object != nil && object.Type() == "identifier" {
			return object.Content(content) + "." + property.Content(content), graph.Virtual
		}
		return property.Content(content), graph.Virtual
	}
	return "", ""
}
