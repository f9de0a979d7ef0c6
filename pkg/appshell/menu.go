package appshell

import (
	"strings"
	"sync"

	"github.com/hashicorp/go-bexpr"
)

// MenuItem is one entry of the navigation tree. VisibleWhen is a go-bexpr
// boolean expression evaluated against the viewer's VisibilityContext, e.g.
// `Authenticated == true and "admin" in Roles` or `Stage != "PROD"`.
// An empty expression means always visible.
type MenuItem struct {
	Label       string     `json:"label"`
	Icon        string     `json:"icon,omitempty"`
	Route       string     `json:"route,omitempty"`
	VisibleWhen string     `json:"visibleWhen,omitempty"`
	Children    []MenuItem `json:"children,omitempty"`
}

// VisibilityContext is what menu expressions see.
type VisibilityContext struct {
	Roles         []string `bexpr:"Roles"`
	Stage         string   `bexpr:"Stage"`
	Authenticated bool     `bexpr:"Authenticated"`
}

// evaluatorCache keeps compiled expressions; menus re-evaluate on every
// role change and compilation dominates the cost.
var evaluatorCache sync.Map

// visible evaluates expr against ctx. Empty expressions pass; expressions
// that fail to compile or evaluate hide the item rather than leak it.
func visible(expr string, ctx VisibilityContext) bool {
	if strings.TrimSpace(expr) == "" {
		return true
	}

	var evaluator *bexpr.Evaluator
	if cached, ok := evaluatorCache.Load(expr); ok {
		evaluator = cached.(*bexpr.Evaluator)
	} else {
		compiled, err := bexpr.CreateEvaluator(expr)
		if err != nil {
			return false
		}
		evaluatorCache.Store(expr, compiled)
		evaluator = compiled
	}

	matches, err := evaluator.Evaluate(ctx)
	if err != nil {
		return false
	}
	return matches
}

// MenuFor filters the menu tree down to the items the viewer may see.
// Parents whose expression passes but whose children are all hidden
// collapse, unless they carry a route of their own.
func MenuFor(items []MenuItem, ctx VisibilityContext) []MenuItem {
	var out []MenuItem
	for _, item := range items {
		if !visible(item.VisibleWhen, ctx) {
			continue
		}
		filtered := item
		filtered.Children = MenuFor(item.Children, ctx)
		if len(item.Children) > 0 && len(filtered.Children) == 0 && filtered.Route == "" {
			continue
		}
		out = append(out, filtered)
	}
	return out
}
