package exec

import (
	"fmt"

	"github.com/graphledger/graphledger/internal/flake"
)

// AggFunc names a supported aggregate function.
type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

// Aggregate describes one GROUP BY output column: Func applied to Field
// (ignored for AggCount, which simply counts group members) bound As.
type Aggregate struct {
	Func  AggFunc
	Field string
	As    string
}

// GroupBy partitions rows by the values bound to key variables (in order)
// and computes each requested Aggregate per group, returning one output row
// per distinct key combination with the key columns plus the aggregate
// columns under their As names.
func GroupBy(rows []Row, keys []string, aggs []Aggregate) ([]Row, error) {
	type group struct {
		key    []flake.Object
		keyRow Row
		values []Row
	}

	order := make([]string, len(keys))
	copy(order, keys)

	index := make(map[string]*group)
	var groups []*group
	for _, row := range rows {
		k := make([]flake.Object, len(keys))
		for i, key := range keys {
			k[i] = row[key]
		}
		sig := groupSignature(k)
		g, ok := index[sig]
		if !ok {
			keyRow := make(Row, len(keys))
			for i, key := range keys {
				keyRow[key] = row[key]
			}
			g = &group{key: k, keyRow: keyRow}
			index[sig] = g
			groups = append(groups, g)
		}
		g.values = append(g.values, row)
	}

	out := make([]Row, 0, len(groups))
	for _, g := range groups {
		result := g.keyRow.Clone()
		for _, a := range aggs {
			v, err := computeAggregate(a, g.values)
			if err != nil {
				return nil, err
			}
			result[a.As] = v
		}
		out = append(out, result)
	}
	return out, nil
}

func groupSignature(key []flake.Object) string {
	s := ""
	for _, o := range key {
		if o.IsRef {
			s += fmt.Sprintf("|r:%d", o.Ref)
		} else {
			s += fmt.Sprintf("|l:%v", o.Value)
		}
	}
	return s
}

func numericOf(o flake.Object) (float64, bool) {
	switch v := o.Value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func computeAggregate(a Aggregate, rows []Row) (flake.Object, error) {
	if a.Func == AggCount {
		return flake.LitObject(int64(len(rows)), 0, ""), nil
	}

	var nums []float64
	for _, row := range rows {
		obj, ok := row[a.Field]
		if !ok {
			continue
		}
		n, ok := numericOf(obj)
		if !ok {
			continue
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return flake.Object{}, fmt.Errorf("query/exec: aggregate %v over %q has no numeric values", a.Func, a.Field)
	}

	switch a.Func {
	case AggSum:
		var total float64
		for _, n := range nums {
			total += n
		}
		return flake.LitObject(total, 0, ""), nil
	case AggAvg:
		var total float64
		for _, n := range nums {
			total += n
		}
		return flake.LitObject(total/float64(len(nums)), 0, ""), nil
	case AggMin:
		min := nums[0]
		for _, n := range nums[1:] {
			if n < min {
				min = n
			}
		}
		return flake.LitObject(min, 0, ""), nil
	case AggMax:
		max := nums[0]
		for _, n := range nums[1:] {
			if n > max {
				max = n
			}
		}
		return flake.LitObject(max, 0, ""), nil
	default:
		return flake.Object{}, fmt.Errorf("query/exec: unknown aggregate func %v", a.Func)
	}
}
