package model

import (
	"encoding/json"
	"sort"
)

// UserSet is a set of user ids. The zero value is an empty set ready to use
// for reads; Add allocates on first write.
type UserSet map[string]struct{}

func NewUserSet(uids ...string) UserSet {
	s := make(UserSet, len(uids))
	for _, uid := range uids {
		s[uid] = struct{}{}
	}
	return s
}

// Add inserts uid and reports whether the set changed.
func (s *UserSet) Add(uid string) bool {
	if *s == nil {
		*s = make(UserSet)
	}
	if _, ok := (*s)[uid]; ok {
		return false
	}
	(*s)[uid] = struct{}{}
	return true
}

// Remove deletes uid and reports whether the set changed.
func (s UserSet) Remove(uid string) bool {
	if _, ok := s[uid]; !ok {
		return false
	}
	delete(s, uid)
	return true
}

func (s UserSet) Has(uid string) bool {
	_, ok := s[uid]
	return ok
}

func (s UserSet) ContainsAll(uids ...string) bool {
	for _, uid := range uids {
		if !s.Has(uid) {
			return false
		}
	}
	return true
}

func (s UserSet) Clone() UserSet {
	out := make(UserSet, len(s))
	for uid := range s {
		out[uid] = struct{}{}
	}
	return out
}

// Slice returns the members in ascending order.
func (s UserSet) Slice() []string {
	out := make([]string, 0, len(s))
	for uid := range s {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}

func (s UserSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *UserSet) UnmarshalJSON(data []byte) error {
	var uids []string
	if err := json.Unmarshal(data, &uids); err != nil {
		return err
	}
	*s = NewUserSet(uids...)
	return nil
}
