package astradoc

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xdbsoft/astradoc/api"
)

// Filter selects documents. A field maps either to a literal, meaning equality, or to an operator object.
type Filter map[string]interface{}

// Update is a partial update: direct field assignments and/or $set and $inc operators.
type Update map[string]interface{}

// isLiteral reports whether v is implicitly compared for equality in a filter
func isLiteral(v interface{}) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number,
		primitive.ObjectID:
		return true
	}
	return false
}

// FormatQuery returns the filter in the shape of a where clause: literals are wrapped in {$eq: literal}.
// Values of any other kind, operator objects included, are kept as is.
func FormatQuery(filter Filter, opts *FindOptions) (Filter, error) {
	modified := make(Filter, len(filter))
	for k, v := range filter {
		if opts != nil && opts.Collation != nil {
			return nil, errCollation
		}
		if oid, ok := v.(primitive.ObjectID); ok {
			v = oid.Hex()
		}
		if isLiteral(v) {
			modified[k] = map[string]interface{}{"$eq": v}
			continue
		}
		modified[k] = v
	}
	return modified, nil
}

// AddDefaultID gives the document a new ObjectID hex identifier when it has none.
// Non string identifiers are converted to their string form.
func AddDefaultID(doc api.Document) api.Document {
	switch id := doc[api.IDField].(type) {
	case string:
		if len(id) > 0 {
			return doc
		}
	case primitive.ObjectID:
		doc[api.IDField] = id.Hex()
		return doc
	case nil:
	default:
		doc[api.IDField] = fmt.Sprint(id)
		return doc
	}
	doc[api.IDField] = primitive.NewObjectID().Hex()
	return doc
}

// fieldsOf returns the fields of an operator argument
func fieldsOf(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Update:
		return m, true
	case Filter:
		return m, true
	case api.Document:
		return m, true
	case bson.M:
		return m, true
	}
	return nil, false
}

// flattenUpdate resolves the update into the field assignments of a PATCH. $inc is applied to the
// values of current, the document as fetched before the update.
func flattenUpdate(update Update, current api.Document) (api.Document, error) {

	patch := make(api.Document, len(update))
	for k, v := range update {
		if strings.HasPrefix(k, "$") && k != "$set" && k != "$inc" {
			return nil, unsupportedError(fmt.Sprintf("Update operator %s is not supported", k))
		}
		if k == "$set" || k == "$inc" {
			continue
		}
		patch[k] = v
	}

	if set, ok := update["$set"]; ok {
		fields, ok := fieldsOf(set)
		if !ok {
			return nil, fmt.Errorf("$set expects a document, got %T", set)
		}
		for k, v := range fields {
			patch[k] = v
		}
	}

	if inc, ok := update["$inc"]; ok {
		fields, ok := fieldsOf(inc)
		if !ok {
			return nil, fmt.Errorf("$inc expects a document, got %T", inc)
		}
		for k, amount := range fields {
			base, found := current[k]
			if !found || base == nil {
				patch[k] = amount
				continue
			}
			sum, err := addNumbers(base, amount)
			if err != nil {
				return nil, fmt.Errorf("cannot increment field %s: %v", k, err)
			}
			patch[k] = sum
		}
	}

	return patch, nil
}

func asInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint64:
		return int64(n), n <= math.MaxInt64
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func addNumbers(a, b interface{}) (interface{}, error) {
	ai, aInt := asInt(a)
	bi, bInt := asInt(b)
	if aInt && bInt {
		overflows := (bi > 0 && ai > math.MaxInt64-bi) || (bi < 0 && ai < math.MinInt64-bi)
		if !overflows {
			return ai + bi, nil
		}
	}
	af, aOk := asFloat(a)
	bf, bOk := asFloat(b)
	if !aOk || !bOk {
		return nil, fmt.Errorf("non numeric operands %T and %T", a, b)
	}
	return af + bf, nil
}
