// Package menu resolves the navigational menu forest a user may see
// from the flat role/resource mappings.
package menu

import (
	"context"
	"sort"

	"github.com/iliyamo/auth-gateway/internal/model"
)

// RoleStore resolves the role ids assigned to a user.
type RoleStore interface {
	RoleIDsByUsername(ctx context.Context, username string) ([]int64, error)
}

// ResourceStore fetches the distinct active menu resources reachable
// by a set of role ids.
type ResourceStore interface {
	MenuResourcesByRoleIDs(ctx context.Context, roleIDs []int64) ([]model.Resource, error)
}

// Node is one entry of the resolved menu forest.
type Node struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	URL          string  `json:"url"`
	Icon         string  `json:"icon"`
	ParentID     *int64  `json:"parentId"`
	DisplayOrder int     `json:"displayOrder"`
	IsGroup      bool    `json:"isGroup"`
	Children     []*Node `json:"children"`
}

// Resolver computes the ordered menu forest for a user.
type Resolver struct {
	Roles     RoleStore
	Resources ResourceStore
}

func NewResolver(roles RoleStore, resources ResourceStore) *Resolver {
	return &Resolver{Roles: roles, Resources: resources}
}

// MenusForUser resolves the forest for one user. A user without roles
// gets an empty forest, not an error.
func (r *Resolver) MenusForUser(ctx context.Context, username string) ([]*Node, error) {
	roleIDs, err := r.Roles.RoleIDsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(roleIDs) == 0 {
		return []*Node{}, nil
	}
	resources, err := r.Resources.MenuResourcesByRoleIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	return BuildTree(resources), nil
}

// BuildTree assembles the forest from a flat resource slice. A nil
// parent id makes a root; a non-nil parent id attaches the node under
// that parent if it is present in the slice, otherwise the node is
// dropped: a user cannot see an orphaned submenu without seeing its
// parent group. Sibling lists are sorted by ascending display order
// with ties broken by the input order (stable), so the output is
// deterministic for identical input. Parent links are followed
// through a flat id index with a visited guard, so cyclic data yields
// a pruned forest instead of infinite recursion.
func BuildTree(resources []model.Resource) []*Node {
	index := make(map[int64]*Node, len(resources))
	order := make([]*Node, 0, len(resources))
	for i := range resources {
		n := newNode(&resources[i])
		index[n.ID] = n
		order = append(order, n)
	}

	roots := make([]*Node, 0, len(order))
	for _, n := range order {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := index[*n.ParentID]
		if !ok || parent == n {
			// Parent outside the accessible set (or self-referential
			// bad data): drop the node rather than failing resolution.
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	visited := make(map[int64]bool, len(order))
	sortForest(roots, visited)
	return roots
}

func newNode(res *model.Resource) *Node {
	n := &Node{
		ID:           res.ID,
		ParentID:     res.ParentID,
		DisplayOrder: res.DisplayOrder,
		IsGroup:      res.IsGroup,
		Children:     []*Node{},
	}
	if res.MenuName != nil {
		n.Name = *res.MenuName
	}
	if res.MenuURL != nil {
		n.URL = *res.MenuURL
	}
	if res.IconName != nil {
		n.Icon = *res.IconName
	}
	return n
}

func sortForest(nodes []*Node, visited map[int64]bool) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].DisplayOrder < nodes[j].DisplayOrder
	})
	for _, n := range nodes {
		if visited[n.ID] {
			continue
		}
		visited[n.ID] = true
		if len(n.Children) > 0 {
			sortForest(n.Children, visited)
		}
	}
}
