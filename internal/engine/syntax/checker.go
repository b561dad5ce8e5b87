// Package syntax runs a tree-sitter PHP parse over a file before the
// token-based element parsers see it, so that malformed sources are reported
// with a line and column instead of a confusing token error.
package syntax

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	"phpmodel/internal/core/errors"
)

// Issue is one ERROR or MISSING node found in the tree. Line and Column are
// 1-based.
type Issue struct {
	Line    int
	Column  int
	Kind    string
	Missing bool
}

func (i Issue) String() string {
	if i.Missing {
		return fmt.Sprintf("%d:%d missing %s", i.Line, i.Column, i.Kind)
	}
	return fmt.Sprintf("%d:%d syntax error", i.Line, i.Column)
}

type Checker struct {
	pool      *ParserPool
	maxIssues int
}

// NewChecker returns a checker for full PHP files (open tags and inline HTML
// included).
func NewChecker() *Checker {
	return &Checker{
		pool:      NewParserPool(sitter.NewLanguage(tree_sitter_php.LanguagePHP())),
		maxIssues: 10,
	}
}

// Issues parses src and returns up to the checker's limit of problems in
// source order.
func (c *Checker) Issues(src []byte) ([]Issue, error) {
	sp := c.pool.Get()
	defer c.pool.Put(sp)

	tree := sp.Parse(src, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeInternal, "tree-sitter returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}
	var issues []Issue
	c.collect(root, &issues)
	return issues, nil
}

func (c *Checker) collect(node *sitter.Node, issues *[]Issue) {
	if len(*issues) >= c.maxIssues {
		return
	}
	if node.IsError() || node.IsMissing() {
		pos := node.StartPosition()
		*issues = append(*issues, Issue{
			Line:    int(pos.Row) + 1,
			Column:  int(pos.Column) + 1,
			Kind:    node.Kind(),
			Missing: node.IsMissing(),
		})
		if node.IsError() {
			return
		}
	}
	if !node.HasError() {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			c.collect(child, issues)
		}
	}
}

// Check returns a ParseError positioned at the first problem in src, or nil
// when the file parses cleanly.
func (c *Checker) Check(path string, src []byte) error {
	issues, err := c.Issues(src)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		return nil
	}
	first := issues[0]
	msg := fmt.Sprintf("syntax check failed at %s", first)
	if len(issues) > 1 {
		msg = fmt.Sprintf("%s (+%d more)", msg, len(issues)-1)
	}
	return errors.NewParse(errors.CodeUnexpectedToken, "", msg).At(path, -1, first.Line)
}
