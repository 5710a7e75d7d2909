package vm

import "github.com/droplet-lang/lang/pkg/heapobj"

// asString reports whether o is a String object and returns its Go string.
func asString(o heapobj.Object) (string, bool) {
	s, ok := o.(*heapobj.String)
	if !ok {
		return "", false
	}
	return s.Value, true
}
