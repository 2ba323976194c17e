package records

import "fmt"

// Kind identifies one of the nine record collections.
type Kind int

const (
	KindOrders Kind = iota
	KindBatches
	KindLabs
	KindInventory
	KindTurnover
	KindApprovals
	KindSubmissions
	KindSupplierPerf
	KindDeviations
)

var kindNames = [...]string{
	KindOrders:       "orders",
	KindBatches:      "batches",
	KindLabs:         "labs",
	KindInventory:    "inventory",
	KindTurnover:     "turnover",
	KindApprovals:    "approvals",
	KindSubmissions:  "submissions",
	KindSupplierPerf: "supplier_perf",
	KindDeviations:   "deviations",
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindOrders,
		KindBatches,
		KindLabs,
		KindInventory,
		KindTurnover,
		KindApprovals,
		KindSubmissions,
		KindSupplierPerf,
		KindDeviations,
	}
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a collection name such as "orders" to its Kind.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown record kind %q", name)
}

// Capabilities describes which optional filter axes a collection carries.
// It is derived once per kind when a Store is built.
type Capabilities struct {
	HasCategory bool
}

// DefaultRef is the path of the kind's source relative to the data root.
func (k Kind) DefaultRef() string {
	switch k {
	case KindOrders:
		return "supply/orders.jsonl"
	case KindBatches:
		return "quality/batches.jsonl"
	case KindLabs:
		return "quality/labs.jsonl"
	case KindInventory:
		return "supply/inventory.jsonl"
	case KindTurnover:
		return "supply/inventory_turnover.jsonl"
	case KindApprovals:
		return "regulatory/approvals.jsonl"
	case KindSubmissions:
		return "regulatory/submissions.jsonl"
	case KindSupplierPerf:
		return "supply/supplier_performance.jsonl"
	case KindDeviations:
		return "quality/deviations.jsonl"
	default:
		return ""
	}
}
