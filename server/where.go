package server

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/xdbsoft/astradoc/api"
)

// condition is the set of operators applied to one field of a where clause
type condition map[string]interface{}

type whereClause map[string]condition

func parseWhere(s string) (whereClause, error) {

	if s == "" {
		return nil, nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, badRequest("Invalid where clause: " + err.Error())
	}

	w := make(whereClause, len(raw))
	for field, v := range raw {
		ops, ok := v.(map[string]interface{})
		if !ok {
			return nil, badRequest(fmt.Sprintf("Invalid where clause: value for '%s' must be an operator object", field))
		}
		for op := range ops {
			if _, known := operators[op]; !known {
				return nil, badRequest(fmt.Sprintf("Invalid where clause: unsupported operator '%s'", op))
			}
		}
		w[field] = ops
	}
	return w, nil
}

func (w whereClause) Match(d api.Document) bool {
	for field, c := range w {
		v, present := lookup(d, field)
		for op, arg := range c {
			if !operators[op](v, present, arg) {
				return false
			}
		}
	}
	return true
}

type operator func(value interface{}, present bool, arg interface{}) bool

var operators = map[string]operator{
	"$eq": func(v interface{}, present bool, arg interface{}) bool {
		return present && equal(v, arg)
	},
	"$ne": func(v interface{}, present bool, arg interface{}) bool {
		return !present || !equal(v, arg)
	},
	"$gt": func(v interface{}, present bool, arg interface{}) bool {
		c, ok := compare(v, arg)
		return present && ok && c > 0
	},
	"$gte": func(v interface{}, present bool, arg interface{}) bool {
		c, ok := compare(v, arg)
		return present && ok && c >= 0
	},
	"$lt": func(v interface{}, present bool, arg interface{}) bool {
		c, ok := compare(v, arg)
		return present && ok && c < 0
	},
	"$lte": func(v interface{}, present bool, arg interface{}) bool {
		c, ok := compare(v, arg)
		return present && ok && c <= 0
	},
	"$in": func(v interface{}, present bool, arg interface{}) bool {
		return present && contains(arg, v)
	},
	"$nin": func(v interface{}, present bool, arg interface{}) bool {
		return !present || !contains(arg, v)
	},
	"$exists": func(v interface{}, present bool, arg interface{}) bool {
		want, _ := arg.(bool)
		return present == want
	},
}

// lookup resolves a dotted field path
func lookup(d map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = d
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			if doc, isDoc := cur.(api.Document); isDoc {
				m = doc
			} else {
				return nil, false
			}
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func equal(a, b interface{}) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func compare(a, b interface{}) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func contains(list interface{}, v interface{}) bool {
	items, ok := list.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if equal(v, item) {
			return true
		}
	}
	return false
}
