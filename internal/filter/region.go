package filter

import (
	"fmt"
)

// Level is the administrative depth at which a region path is rejected.
type Level int

const (
	Keep         Level = iota // Path is not filtered
	DropProvince              // Whole province is filtered
	DropCity                  // Whole city is filtered
	DropDistrict              // Only this district is filtered
)

func (l Level) String() string {
	switch l {
	case Keep:
		return "keep"
	case DropProvince:
		return "drop-province"
	case DropCity:
		return "drop-city"
	case DropDistrict:
		return "drop-district"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Path is an administrative path: province, city, district.
type Path [3]string

const pathDepth = len(Path{})

// everything is the include ceiling meaning "no level is rejected".
const everything = pathDepth + 1

// EvaluateRegion returns the level at which path is rejected by the included
// and excluded trees. A nil included tree includes everything; a nil excluded
// tree excludes everything below the province level, so callers wanting "no
// exclusions" pass an empty Leaf.
//
// The include walk yields a ceiling that clamps whatever the exclude walk
// decides. When the exclude walk misses a label, the path is kept only if the
// include walk matched everything; otherwise the include ceiling is returned.
func EvaluateRegion(path Path, included, excluded *Node) (Level, error) {
	ceiling, err := includeCeiling(path, included)
	if err != nil {
		return Keep, err
	}

	node := excluded
	for n, label := range path {
		if err := checkShape(node, path[:n]); err != nil {
			return Keep, err
		}
		if node.Kind() == KindUnbounded {
			return Level(min(max(n, 1), ceiling)), nil
		}
		child, ok := node.lookup(label)
		if !ok {
			if ceiling == everything {
				return Keep, nil
			}
			return Level(ceiling), nil
		}
		if node.Kind() == KindLeaf {
			return Level(min(n+1, ceiling)), nil
		}
		node = child
	}
	return Level(min(pathDepth, ceiling)), nil
}

// includeCeiling walks path along the included tree and returns the deepest
// level the path may survive to.
func includeCeiling(path Path, included *Node) (int, error) {
	node := included
	for n, label := range path {
		if err := checkShape(node, path[:n]); err != nil {
			return 0, err
		}
		if node.Kind() == KindUnbounded {
			return everything, nil
		}
		child, ok := node.lookup(label)
		if !ok {
			if !node.Empty() {
				return n + 1, nil
			}
			// An empty node rejects from its own level, never above the province.
			return max(n, 1), nil
		}
		if node.Kind() == KindLeaf {
			return everything, nil
		}
		node = child
	}
	return pathDepth, nil
}

func checkShape(n *Node, path []string) error {
	switch n.Kind() {
	case KindUnbounded, KindLeaf, KindBranch:
		return nil
	default:
		return &FilterSpecError{
			Path:   append([]string(nil), path...),
			Reason: fmt.Sprintf("node of kind %s cannot be matched", n.Kind()),
		}
	}
}
