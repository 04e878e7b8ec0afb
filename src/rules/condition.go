package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"famfin-server/src/models"

	"github.com/shopspring/decimal"
)

var (
	fields = map[string]bool{"description": true, "merchant": true, "amount": true, "direction": true, "currency": true}
	ops    = map[string]bool{"equals": true, "contains": true, "gt": true, "gte": true, "lt": true, "lte": true, "in": true}
)

// Parse decodes and validates a rule's condition tree.
func Parse(raw json.RawMessage) (models.Condition, error) {
	var cond models.Condition
	if err := json.Unmarshal(raw, &cond); err != nil {
		return cond, fmt.Errorf("invalid conditions: %w", err)
	}
	return cond, Validate(cond)
}

func Validate(cond models.Condition) error {
	if len(cond.And) > 0 || len(cond.Or) > 0 {
		for _, c := range append(append([]models.Condition{}, cond.And...), cond.Or...) {
			if err := Validate(c); err != nil {
				return err
			}
		}
		return nil
	}
	if !fields[cond.Field] {
		return fmt.Errorf("unknown field %q", cond.Field)
	}
	if !ops[cond.Op] {
		return fmt.Errorf("unknown op %q", cond.Op)
	}
	return nil
}

// Evaluate reports whether txn satisfies cond. String comparisons ignore case.
func Evaluate(cond models.Condition, txn models.LedgerTransaction) bool {
	// Logical AND
	if len(cond.And) > 0 {
		for _, c := range cond.And {
			if !Evaluate(c, txn) {
				return false
			}
		}
		return true
	}
	// Logical OR
	if len(cond.Or) > 0 {
		for _, c := range cond.Or {
			if Evaluate(c, txn) {
				return true
			}
		}
		return false
	}

	switch cond.Field {
	case "amount":
		return compareAmount(cond, txn.Amount)
	case "description":
		return compareString(cond, txn.Description)
	case "merchant":
		return compareString(cond, txn.Merchant)
	case "direction":
		return compareString(cond, string(txn.Direction))
	case "currency":
		return compareString(cond, txn.Currency)
	default:
		return false
	}
}

func compareString(cond models.Condition, s string) bool {
	switch cond.Op {
	case "equals":
		val, ok := cond.Value.(string)
		return ok && strings.EqualFold(s, val)
	case "contains":
		val, ok := cond.Value.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(val))
	case "in":
		arr, ok := cond.Value.([]interface{})
		if !ok {
			return false
		}
		for _, v := range arr {
			if str, ok := v.(string); ok && strings.EqualFold(s, str) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func compareAmount(cond models.Condition, amount decimal.Decimal) bool {
	val, ok := toDecimal(cond.Value)
	if !ok {
		return false
	}
	switch cond.Op {
	case "equals":
		return amount.Equal(val)
	case "gt":
		return amount.GreaterThan(val)
	case "gte":
		return amount.GreaterThanOrEqual(val)
	case "lt":
		return amount.LessThan(val)
	case "lte":
		return amount.LessThanOrEqual(val)
	default:
		return false
	}
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}
