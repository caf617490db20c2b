package adapter

// Record is a model instance. Reference holders are nested records and
// one-to-many accessors hold a []Record.
type Record map[string]any

// Lookup returns the value at path. It reports false when a record along the
// path is missing.
func (r Record) Lookup(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var cur any = r
	for _, key := range path {
		m, ok := asRecord(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set stores v at path, creating the intermediate records.
func (r Record) Set(path []string, v any) {
	if len(path) == 0 {
		return
	}
	cur := r
	for _, key := range path[:len(path)-1] {
		next, ok := asRecord(cur[key])
		if !ok {
			next = make(Record)
			cur[key] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = v
}

func asRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, m != nil
	case map[string]any:
		return m, m != nil
	default:
		return nil, false
	}
}
