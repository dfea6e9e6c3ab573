package domain

import "time"

// Field names double as column names in the tasks table.
type Field string

const (
	FieldAssigneeID   Field = "assignee_id"
	FieldCreatorID    Field = "creator_id"
	FieldStatus       Field = "status"
	FieldPriority     Field = "priority"
	FieldPropertyID   Field = "property_id"
	FieldAssetID      Field = "asset_id"
	FieldCreationDate Field = "creation_date"
	FieldDueDate      Field = "due_date"
)

type Operator string

const (
	OpEq  Operator = "="
	OpLt  Operator = "<"
	OpGte Operator = ">="
	OpLte Operator = "<="
	OpIn  Operator = "IN"
)

// Condition is a single comparison. Value is an int64, string, time.Time, or
// for OpIn a []string.
type Condition struct {
	Field Field
	Op    Operator
	Value any
}

// Predicate is a conjunction of conditions. The zero value matches every task.
// And returns a new Predicate; the receiver is never modified.
type Predicate struct {
	conditions []Condition
}

func (p Predicate) And(conds ...Condition) Predicate {
	merged := make([]Condition, 0, len(p.conditions)+len(conds))
	merged = append(merged, p.conditions...)
	merged = append(merged, conds...)
	return Predicate{conditions: merged}
}

func (p Predicate) Conditions() []Condition {
	out := make([]Condition, len(p.conditions))
	copy(out, p.conditions)
	return out
}

func (p Predicate) IsEmpty() bool {
	return len(p.conditions) == 0
}

// FieldEquals is the single-field equality predicate.
func FieldEquals(f Field, value any) Predicate {
	return Predicate{}.And(Condition{Field: f, Op: OpEq, Value: value})
}

// OverduePredicate selects tasks due before now that are still active.
func OverduePredicate(now time.Time) Predicate {
	return Predicate{}.And(
		Condition{Field: FieldDueDate, Op: OpLt, Value: now.UTC()},
		Condition{Field: FieldStatus, Op: OpIn, Value: []string{
			string(TaskStatusNew),
			string(TaskStatusAssigned),
			string(TaskStatusInProgress),
		}},
	)
}
