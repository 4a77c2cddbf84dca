package parser

// ClassnameKey is the key whose value selects the entity's class.
const ClassnameKey = "classname"

// Accumulator collects the key/value pairs of the entity being read.
type Accumulator struct {
	pairs        KeyValueList
	classname    string
	hasClassname bool
}

// Add appends a pair. A classname pair replaces any earlier one (last wins).
func (a *Accumulator) Add(key, value string) {
	a.pairs = append(a.pairs, KeyValue{Key: key, Value: value})
	if key == ClassnameKey {
		a.classname = value
		a.hasClassname = true
	}
}

// Classname returns the last classname seen, if any.
func (a *Accumulator) Classname() (string, bool) {
	return a.classname, a.hasClassname
}

// Len returns the number of accumulated pairs.
func (a *Accumulator) Len() int {
	return len(a.pairs)
}

// Take returns the classname and pairs and resets the accumulator.
// ok is false when no classname pair was added.
func (a *Accumulator) Take() (classname string, pairs KeyValueList, ok bool) {
	classname, pairs, ok = a.classname, a.pairs, a.hasClassname
	*a = Accumulator{}
	return classname, pairs, ok
}
