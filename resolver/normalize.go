package resolver

import (
	"strings"

	"github.com/ethereum-optimism/infra/op-testrun/types"
)

// NormalizeTests converts dotted test specifiers into test items.
//
//	ns.Cls.m   -> {className: Cls, namespace: ns, testMethods: [m]}
//	ns.Cls     -> {className: ns.Cls}
//	Cls        -> {className: Cls}
//
// Methods addressing the same class are collected into one item, which keeps
// the position of the first specifier that named the class.
func NormalizeTests(tests []string) []types.TestItem {
	var items []types.TestItem
	index := make(map[string]int)

	for _, spec := range MergeValues(tests) {
		parts := strings.Split(spec, ".")
		if len(parts) < 3 {
			key := "class:" + spec
			if _, ok := index[key]; ok {
				continue
			}
			index[key] = len(items)
			items = append(items, types.TestItem{ClassName: spec})
			continue
		}

		namespace := parts[0]
		className := strings.Join(parts[1:len(parts)-1], ".")
		method := parts[len(parts)-1]

		key := "method:" + namespace + "." + className
		if i, ok := index[key]; ok {
			items[i].TestMethods = appendUnique(items[i].TestMethods, method)
			continue
		}
		index[key] = len(items)
		items = append(items, types.TestItem{
			ClassName:   className,
			Namespace:   namespace,
			TestMethods: []string{method},
		})
	}

	return items
}

// ClassItems maps each class name to an item without methods
func ClassItems(classNames []string) []types.TestItem {
	merged := MergeValues(classNames)
	items := make([]types.TestItem, 0, len(merged))
	for _, name := range merged {
		items = append(items, types.TestItem{ClassName: name})
	}
	return items
}

func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}
