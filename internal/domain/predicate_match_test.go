package domain

import "time"

// matches evaluates p in memory; tests use it to cross-check the SQL
// rendering of the same predicate.
func matches(p Predicate, t *Task) bool {
	for _, c := range p.conditions {
		if !c.matches(t) {
			return false
		}
	}
	return true
}

func (c Condition) matches(t *Task) bool {
	actual, ok := t.fieldValue(c.Field)
	if !ok {
		// NULL never satisfies a comparison.
		return false
	}

	switch c.Op {
	case OpIn:
		values, ok := c.Value.([]string)
		if !ok {
			return false
		}
		s, ok := actual.(string)
		if !ok {
			return false
		}
		for _, v := range values {
			if v == s {
				return true
			}
		}
		return false
	default:
		cmp, ok := compare(actual, c.Value)
		if !ok {
			return false
		}
		switch c.Op {
		case OpEq:
			return cmp == 0
		case OpLt:
			return cmp < 0
		case OpGte:
			return cmp >= 0
		case OpLte:
			return cmp <= 0
		}
		return false
	}
}

func (t *Task) fieldValue(f Field) (any, bool) {
	switch f {
	case FieldAssigneeID:
		return derefInt(t.AssigneeID)
	case FieldCreatorID:
		return t.CreatorID, true
	case FieldStatus:
		return string(t.Status), true
	case FieldPriority:
		return string(t.Priority), true
	case FieldPropertyID:
		return derefInt(t.PropertyID)
	case FieldAssetID:
		return derefInt(t.AssetID)
	case FieldCreationDate:
		return t.CreationDate, true
	case FieldDueDate:
		if t.DueDate == nil {
			return nil, false
		}
		return *t.DueDate, true
	}
	return nil, false
}

func derefInt(v *int64) (any, bool) {
	if v == nil {
		return nil, false
	}
	return *v, true
}

func compare(actual, expected any) (int, bool) {
	switch a := actual.(type) {
	case int64:
		e, ok := expected.(int64)
		if !ok {
			return 0, false
		}
		switch {
		case a < e:
			return -1, true
		case a > e:
			return 1, true
		}
		return 0, true
	case string:
		e, ok := stringValue(expected)
		if !ok {
			return 0, false
		}
		switch {
		case a < e:
			return -1, true
		case a > e:
			return 1, true
		}
		return 0, true
	case time.Time:
		e, ok := expected.(time.Time)
		if !ok {
			return 0, false
		}
		return a.Compare(e), true
	}
	return 0, false
}

func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case TaskStatus:
		return string(s), true
	case TaskPriority:
		return string(s), true
	}
	return "", false
}
