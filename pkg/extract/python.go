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
	"github.com/smacker/go-tree-sitter/python"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

// PythonExtractor mirrors GoExtractor's two-pass shape (definitions, then
// calls within each definition body) against Python's grammar: function
// definitions, class bodies, and nested methods.
type PythonExtractor struct {
	parser *sitter.Parser
}

func NewPythonExtractor() *PythonExtractor {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &PythonExtractor{parser: p}
}

func (py *PythonExtractor) Language() Language { return Python }

func (py *PythonExtractor) Extract(filePath string, content []byte) (graph.SubGraph, error) {
	tree, err := py.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return graph.SubGraph{}, &ParseError{FilePath: filePath, Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return graph.SubGraph{}, &ParseError{FilePath: filePath, Err: fmt.Errorf("nil parse tree")}
	}

	ctx := &pyWalkCtx{content: content, filePath: filePath, nameToID: make(map[string]string)}
	walkPyDefinitions(root, ctx, "")

	var edges []graph.Edge
	for _, d := range ctx.defs {
		walkPyCallExpressions(d.node, content, d.entity.ID, ctx.nameToID, &edges)
	}

	nodes := make([]graph.Node, 0, len(ctx.defs)+1)
	nodes = append(nodes, pyModuleNode(filePath, root))
	for _, d := range ctx.defs {
		nodes = append(nodes, d.entity)
	}
	return graph.SubGraph{Nodes: nodes, Edges: edges}, nil
}

// pyModuleNode builds the one KindModule node every file contributes,
// representing the file itself as an importable module.
func pyModuleNode(filePath string, root *sitter.Node) graph.Node {
	name := ModuleName(filePath)
	return graph.Node{
		ID:       graph.BuildNodeID(filePath, name, 1),
		Name:     name,
		Kind:     graph.KindModule,
		FilePath: filePath,
		Line:     1,
		EndLine:  int(root.EndPoint().Row) + 1,
		Language: string(Python),
		Exported: !isPyPrivate(name),
	}
}

type pyDef struct {
	node   *sitter.Node
	entity graph.Node
}

type pyWalkCtx struct {
	content  []byte
	filePath string
	nameToID map[string]string
	defs     []pyDef
}

func walkPyDefinitions(node *sitter.Node, ctx *pyWalkCtx, classPrefix string) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "decorated_definition":
		def := node.ChildByFieldName("definition")
		if def != nil && def.Type() == "function_definition" {
			walkPyFunctionDef(def, ctx, classPrefix, pyHasRouteDecorator(node, ctx.content))
			return
		}
		walkPyDefinitions(def, ctx, classPrefix)
		return
	case "class_definition":
		nameNode := node.ChildByFieldName("name")
		var className string
		if nameNode != nil {
			className = nameNode.Content(ctx.content)
			line := int(node.StartPoint().Row) + 1
			id := graph.BuildNodeID(ctx.filePath, className, line)
			ctx.defs = append(ctx.defs, pyDef{node: node, entity: graph.Node{
				ID: id, Name: className, Kind: graph.KindClass, FilePath: ctx.filePath,
				Line: line, EndLine: int(node.EndPoint().Row) + 1, Language: string(Python),
				Exported: !isPyPrivate(className),
			}})
		}
		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.ChildCount()); i++ {
				walkPyDefinitions(body.Child(i), ctx, className)
			}
		}
		return
	case "function_definition":
		walkPyFunctionDef(node, ctx, classPrefix, false)
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkPyDefinitions(node.Child(i), ctx, classPrefix)
	}
}

// walkPyFunctionDef records a function_definition node, classifying it as a
// KindHandler when forceHandler is set (a route decorator was found on the
// enclosing decorated_definition) rather than KindFunction/KindMethod.
func walkPyFunctionDef(node *sitter.Node, ctx *pyWalkCtx, classPrefix string, forceHandler bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(ctx.content)
	kind := graph.KindFunction
	if classPrefix != "" {
		kind = graph.KindMethod
		name = classPrefix + "." + name
	}
	if forceHandler {
		kind = graph.KindHandler
	}
	line := int(node.StartPoint().Row) + 1
	id := graph.BuildNodeID(ctx.filePath, name, line)
	n := graph.Node{
		ID: id, Name: name, Kind: kind, FilePath: ctx.filePath,
		Line: line, EndLine: int(node.EndPoint().Row) + 1, Language: string(Python),
		Exported:    !isPyPrivate(nameNode.Content(ctx.content)),
		BranchCount: countPyBranches(node),
	}
	ctx.nameToID[nameNode.Content(ctx.content)] = id
	ctx.defs = append(ctx.defs, pyDef{node: node, entity: n})
	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			walkPyDefinitions(body.Child(i), ctx, "")
		}
	}
}

// pyRouteDecoratorNames are the common web-framework decorator method names
// (Flask, FastAPI, aiohttp, Bottle) that mark a function as a request
// handler rather than a plain function.
var pyRouteDecoratorNames = map[string]bool{
	"route": true, "get": true, "post": true, "put": true, "delete": true,
	"patch": true, "head": true, "options": true, "websocket": true,
}

func pyHasRouteDecorator(decorated *sitter.Node, content []byte) bool {
	for i := 0; i < int(decorated.ChildCount()); i++ {
		c := decorated.Child(i)
		if c.Type() != "decorator" {
			continue
		}
		for j := 0; j < int(c.ChildCount()); j++ {
			cc := c.Child(j)
			if cc.Type() == "@" {
				continue
			}
			if pyRouteDecoratorNames[pyDecoratorCalleeAttr(cc, content)] {
				return true
			}
		}
	}
	return false
}

func pyDecoratorCalleeAttr(node *sitter.Node, content []byte) string {
	switch node.Type() {
	case "call":
		if fn := node.ChildByFieldName("function"); fn != nil {
			return pyDecoratorCalleeAttr(fn, content)
		}
	case "attribute":
		if attr := node.ChildByFieldName("attribute"); attr != nil {
			return strings.ToLower(attr.Content(content))
		}
	case "identifier":
		return strings.ToLower(node.Content(content))
	}
	return ""
}

func isPyPrivate(name string) bool {
	return len(name) > 0 && name[0] == '_'
}

func countPyBranches(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	switch node.Type() {
	case "if_statement", "for_statement", "while_statement", "except_clause",
		"conditional_expression", "boolean_operator":
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countPyBranches(node.Child(i))
	}
	return count
}

func walkPyCallExpressions(node *sitter.Node, content []byte, callerID string, nameToID map[string]string, edges *[]graph.Edge) {
	if node == nil {
		return
	}
	if node.Type() == "call" {
		if fnNode := node.ChildByFieldName("function"); fnNode != nil {
			name, kind := pyCalleeName(fnNode, content)
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
		walkPyCallExpressions(node.Child(i), content, callerID, nameToID, edges)
	}
}

func pyCalleeName(node *sitter.Node, content []byte) (string, graph.EdgeKind) {
	switch node.Type() {
	case "identifier":
		return node.Content(content), graph.Direct
	case "attribute":
		attr := node.ChildByFieldName("attribute")
		if attr == nil {
			return "", ""
		}
		object := node.ChildByFieldName("object")
		if object != nil && object.Type() == "identifier" {
			return object.Content(content) + "." + attr.Content(content), graph.Virtual
		}
		return attr.Content(content), graph.Virtual
	}
	return "", ""
}
