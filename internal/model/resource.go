package model

// Resource type discriminators stored in resources.resource_type.
const (
	ResourceTypeAPI  = "API"
	ResourceTypeMenu = "MENU_ITEM"
)

// Resource represents a protected resource: either an API endpoint
// pattern or a navigational menu item. Menu items additionally carry
// display metadata and may reference a parent resource of the same
// type, forming a hierarchy. The parent link is resolved lazily by
// the menu resolver; the database does not guard against cycles.
//
// Fields:
//  ID           – numeric identifier of the resource.
//  Type         – ResourceTypeAPI or ResourceTypeMenu.
//  Pattern      – URL pattern the resource guards (e.g. /v1/admin/**).
//  HTTPMethod   – optional HTTP method restriction (API resources).
//  Description  – free-form description.
//  MenuName     – display name (menu items only).
//  MenuURL      – front-end route (menu items only).
//  IconName     – icon identifier (menu items only).
//  ParentID     – parent resource id, nil for root menu entries.
//  DisplayOrder – ascending sort key among siblings.
//  IsGroup      – whether the entry is a grouping node without its own page.
//  UseYn        – active flag, "Y"/"N".
type Resource struct {
	ID           int64   // resources.resource_id
	Type         string  // resources.resource_type
	Pattern      string  // resources.resource_pattern
	HTTPMethod   *string // resources.http_method (nullable)
	Description  *string // resources.description (nullable)
	MenuName     *string // resources.menu_name (nullable)
	MenuURL      *string // resources.menu_url (nullable)
	IconName     *string // resources.icon_name (nullable)
	ParentID     *int64  // resources.parent_resource_id (nullable)
	DisplayOrder int     // resources.display_order
	IsGroup      bool    // resources.is_group
	UseYn        string  // resources.use_yn
}
