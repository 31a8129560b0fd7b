package store

// Field names an order attribute that a Query can filter or sort on.
type Field string

const (
	FieldID           Field = "id"
	FieldStatus       Field = "status"
	FieldCustomerID   Field = "customer.id"
	FieldCustomerName Field = "customer.name"
	FieldCreatedAt    Field = "created_at"
	FieldTotal        Field = "total"
	// FieldSeq orders by insertion. Sort only.
	FieldSeq Field = "seq"
)

type Op int

const (
	OpEq Op = iota
	OpGte
	OpLte
	// OpIContains is a case-insensitive substring match on string fields.
	OpIContains
)

// Condition is a single predicate, or a disjunction when Or is non-empty.
//
// Value types by field: string for id, customer.id, customer.name;
// OrderStatus for status; time.Time for created_at; decimal.Decimal for total.
type Condition struct {
	Field Field
	Op    Op
	Value any
	Or    []Condition
}

func Eq(f Field, v any) Condition           { return Condition{Field: f, Op: OpEq, Value: v} }
func Gte(f Field, v any) Condition          { return Condition{Field: f, Op: OpGte, Value: v} }
func Lte(f Field, v any) Condition          { return Condition{Field: f, Op: OpLte, Value: v} }
func IContains(f Field, s string) Condition { return Condition{Field: f, Op: OpIContains, Value: s} }
func AnyOf(conds ...Condition) Condition    { return Condition{Or: conds} }

type Sort struct {
	Field Field
	Desc  bool
}

// Query selects orders matching every condition in Where, ordered by Sort.
// Rows with equal sort keys keep insertion order.
type Query struct {
	Where []Condition
	Sort  Sort
}

// DefaultSort is newest first.
var DefaultSort = Sort{Field: FieldCreatedAt, Desc: true}
