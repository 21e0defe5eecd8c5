package testutil

import "github.com/roach88/factview/internal/ir"

// Fact types of the application model shared by tests: a root with named
// revisions, items (which can be deleted), sub items and sub-sub items.
const (
	TypeRoot        = "Application.Root"
	TypeName        = "Application.Name"
	TypeItem        = "Application.Item"
	TypeItemDeleted = "Application.ItemDeleted"
	TypeSubItem     = "Application.SubItem"
	TypeSubSubItem  = "Application.SubSubItem"
)

// Root builds an application root.
func Root(identifier string) ir.Fact {
	return ir.MustNewFact(TypeRoot, ir.Object(ir.O("identifier", ir.IRString(identifier))))
}

// Name builds a name revision of root superseding prior.
func Name(root ir.Fact, value string, prior ...ir.Fact) ir.Fact {
	return ir.MustNewFact(TypeName,
		ir.Object(ir.O("value", ir.IRString(value))),
		ir.P("root", root),
		ir.P("prior", prior...),
	)
}

// Item builds an item of root.
func Item(root ir.Fact, createdAt string) ir.Fact {
	return ir.MustNewFact(TypeItem,
		ir.Object(ir.O("createdAt", ir.IRString(createdAt))),
		ir.P("root", root),
	)
}

// ItemDeleted marks item as deleted.
func ItemDeleted(item ir.Fact) ir.Fact {
	return ir.MustNewFact(TypeItemDeleted, nil, ir.P("item", item))
}

// SubItem builds a sub item of item.
func SubItem(item ir.Fact, createdAt string) ir.Fact {
	return ir.MustNewFact(TypeSubItem,
		ir.Object(ir.O("createdAt", ir.IRString(createdAt))),
		ir.P("item", item),
	)
}

// SubSubItem builds a sub-sub item of subItem.
func SubSubItem(subItem ir.Fact, id string) ir.Fact {
	return ir.MustNewFact(TypeSubSubItem,
		ir.Object(ir.O("id", ir.IRString(id))),
		ir.P("subItem", subItem),
	)
}
