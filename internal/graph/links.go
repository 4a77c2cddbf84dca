package graph

import (
	"sort"
	"strconv"
	"strings"

	"mapreader/internal/parser"
)

// TargetKey is the key prefix linking an entity to another entity's name.
const TargetKey = "target"

// Node is a named entity of a map.
type Node struct {
	Name      string
	Classname string
}

// Link is a target reference from one named entity to another.
type Link struct {
	From string
	Key  string
	To   string
}

// isTargetKey matches "target" and "targetN".
func isTargetKey(key string) bool {
	if !strings.HasPrefix(key, TargetKey) {
		return false
	}
	suffix := key[len(TargetKey):]
	if suffix == "" {
		return true
	}
	_, err := strconv.Atoi(suffix)
	return err == nil
}

// TargetLinks collects the named entities and their target links.
// Links to names not present in the map are returned separately.
func TargetLinks(entities []*parser.Entity) (nodes []Node, links []Link, dangling []Link) {
	names := make(map[string]struct{})
	for _, e := range entities {
		name := e.KeyValue("name")
		if name == "" {
			continue
		}
		if _, dup := names[name]; dup {
			continue
		}
		names[name] = struct{}{}
		nodes = append(nodes, Node{Name: name, Classname: e.Classname()})
	}

	for _, e := range entities {
		from := e.KeyValue("name")
		if from == "" {
			continue
		}
		for _, kv := range e.KeyValues() {
			if !isTargetKey(kv.Key) || kv.Value == "" {
				continue
			}
			l := Link{From: from, Key: kv.Key, To: kv.Value}
			if _, ok := names[kv.Value]; ok {
				links = append(links, l)
			} else {
				dangling = append(dangling, l)
			}
		}
	}

	sort.SliceStable(links, func(i, j int) bool {
		if links[i].From != links[j].From {
			return links[i].From < links[j].From
		}
		return links[i].Key < links[j].Key
	})
	return nodes, links, dangling
}
