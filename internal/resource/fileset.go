package resource

// entry is a single member of a FileSet.
type entry struct {
	lang Language
	res  Resource
}

// FileSet is an ordered collection of (Language, Resource) pairs with set
// semantics on the Resource. Iteration follows first-insertion order.
// The zero value is ready to use.
type FileSet struct {
	entries []entry
	index   map[Resource]int
}

// NewFileSet returns a set holding res, all tagged with lang.
func NewFileSet(lang Language, res ...Resource) *FileSet {
	s := &FileSet{}
	s.AddAll(lang, res...)
	return s
}

// Add inserts res unless it is already present. It reports whether the set changed.
func (s *FileSet) Add(lang Language, res Resource) bool {
	if s.index == nil {
		s.index = make(map[Resource]int)
	}
	if _, ok := s.index[res]; ok {
		return false
	}
	s.index[res] = len(s.entries)
	s.entries = append(s.entries, entry{lang: lang, res: res})
	return true
}

// AddAll inserts every resource with the same language tag.
func (s *FileSet) AddAll(lang Language, res ...Resource) {
	for _, r := range res {
		s.Add(lang, r)
	}
}

// Merge appends the members of other in its order.
func (s *FileSet) Merge(other *FileSet) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		s.Add(e.lang, e.res)
	}
}

// Contains reports whether res is a member.
func (s *FileSet) Contains(res Resource) bool {
	_, ok := s.index[res]
	return ok
}

// Language returns the tag res was first added with.
func (s *FileSet) Language(res Resource) (Language, bool) {
	i, ok := s.index[res]
	if !ok {
		return None, false
	}
	return s.entries[i].lang, true
}

// Len returns the number of members.
func (s *FileSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Resources returns the members in insertion order.
func (s *FileSet) Resources() []Resource {
	if s == nil {
		return nil
	}
	out := make([]Resource, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.res
	}
	return out
}

// Filter returns the members tagged with lang, in insertion order.
func (s *FileSet) Filter(lang Language) []Resource {
	if s == nil {
		return nil
	}
	var out []Resource
	for _, e := range s.entries {
		if e.lang == lang {
			out = append(out, e.res)
		}
	}
	return out
}

// Strings returns the Makefile paths of the members in insertion order.
func (s *FileSet) Strings() []string {
	res := s.Resources()
	out := make([]string, len(res))
	for i, r := range res {
		out[i] = r.String()
	}
	return out
}
