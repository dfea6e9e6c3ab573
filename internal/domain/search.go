package domain

import "time"

// SearchParams is the optional filter set of a task search. Nil fields are
// ignored rather than matched against NULL.
type SearchParams struct {
	AssigneeID    *int64
	CreatorID     *int64
	Status        *string
	Priority      *string
	PropertyID    *int64
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// BuildSearchPredicate turns params into a conjunctive predicate. Status and
// priority are parsed up front so an unknown value fails before any query runs.
func BuildSearchPredicate(params SearchParams) (Predicate, error) {
	var p Predicate

	if params.AssigneeID != nil {
		p = p.And(Condition{Field: FieldAssigneeID, Op: OpEq, Value: *params.AssigneeID})
	}
	if params.CreatorID != nil {
		p = p.And(Condition{Field: FieldCreatorID, Op: OpEq, Value: *params.CreatorID})
	}
	if params.Status != nil {
		status, err := ParseStatus(*params.Status)
		if err != nil {
			return Predicate{}, err
		}
		p = p.And(Condition{Field: FieldStatus, Op: OpEq, Value: string(status)})
	}
	if params.Priority != nil {
		priority, err := ParsePriority(*params.Priority)
		if err != nil {
			return Predicate{}, err
		}
		p = p.And(Condition{Field: FieldPriority, Op: OpEq, Value: string(priority)})
	}
	if params.PropertyID != nil {
		p = p.And(Condition{Field: FieldPropertyID, Op: OpEq, Value: *params.PropertyID})
	}
	if params.CreatedAfter != nil {
		p = p.And(Condition{Field: FieldCreationDate, Op: OpGte, Value: params.CreatedAfter.UTC()})
	}
	if params.CreatedBefore != nil {
		p = p.And(Condition{Field: FieldCreationDate, Op: OpLte, Value: params.CreatedBefore.UTC()})
	}

	return p, nil
}
