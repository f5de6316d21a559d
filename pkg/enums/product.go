package enums

// ProductStatus is owned by the catalog; the core only flips active and
// out_of_stock.
type ProductStatus string

const (
	ProductStatusDraft      ProductStatus = "draft"
	ProductStatusActive     ProductStatus = "active"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
	ProductStatusArchived   ProductStatus = "archived"
)

var validProductStatuses = []ProductStatus{
	ProductStatusDraft,
	ProductStatusActive,
	ProductStatusOutOfStock,
	ProductStatusArchived,
}

func (s ProductStatus) String() string { return string(s) }

func (s ProductStatus) IsValid() bool { return oneOf(validProductStatuses, s) }

func ParseProductStatus(value string) (ProductStatus, error) {
	return parse(validProductStatuses, value, "product status")
}
