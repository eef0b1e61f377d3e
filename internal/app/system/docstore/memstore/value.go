package memstore

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dalemusser/newsdesk/internal/app/system/docstore"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Type ranks follow MongoDB's cross-type sort order so both stores order
// mixed fields the same way.
const (
	rankNull = iota
	rankNumber
	rankString
	rankObject
	rankArray
	rankBool
	rankDate
	rankTimestamp
	rankOther
)

func rank(v any) (int, any) {
	switch x := v.(type) {
	case nil:
		return rankNull, nil
	case int:
		return rankNumber, float64(x)
	case int32:
		return rankNumber, float64(x)
	case int64:
		return rankNumber, float64(x)
	case float32:
		return rankNumber, float64(x)
	case float64:
		return rankNumber, x
	case string:
		return rankString, x
	case map[string]any:
		return rankObject, x
	case []any:
		return rankArray, x
	case []string:
		return rankArray, x
	case bool:
		return rankBool, x
	case time.Time:
		return rankDate, x
	case *time.Time:
		if x == nil {
			return rankNull, nil
		}
		return rankDate, *x
	case primitive.DateTime:
		return rankDate, x.Time()
	case primitive.Timestamp:
		return rankTimestamp, x
	}
	return rankOther, v
}

// compare orders two field values; a missing field sorts as null.
func compare(a, b any) int {
	ra, va := rank(a)
	rb, vb := rank(b)
	if ra != rb {
		return cmp(ra, rb)
	}
	switch ra {
	case rankNull:
		return 0
	case rankNumber:
		return cmpFloat(va.(float64), vb.(float64))
	case rankString:
		return strings.Compare(va.(string), vb.(string))
	case rankBool:
		x, y := va.(bool), vb.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case rankDate:
		return va.(time.Time).Compare(vb.(time.Time))
	case rankTimestamp:
		x, y := va.(primitive.Timestamp), vb.(primitive.Timestamp)
		return primitive.CompareTimestamp(x, y)
	}
	if reflect.DeepEqual(va, vb) {
		return 0
	}
	return strings.Compare(fmt.Sprint(va), fmt.Sprint(vb))
}

func cmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func equal(a, b any) bool {
	ra, _ := rank(a)
	rb, _ := rank(b)
	return ra == rb && compare(a, b) == 0
}

func matchAll(data map[string]any, filters []docstore.Filter) bool {
	for _, f := range filters {
		v := data[f.Field]
		switch f.Op {
		case docstore.OpEq:
			if !equal(v, f.Value) {
				return false
			}
		case docstore.OpNe:
			if equal(v, f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// clone copies maps and slices so callers never share state with the store.
func clone(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return clone(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	}
	return v
}
