package intel

import (
	"encoding/json"
	"sort"
)

// Set is an unordered collection of unique strings. It encodes as a sorted JSON array.
type Set map[string]struct{}

// NewSet returns a set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s Set) Add(item string) {
	s[item] = struct{}{}
}

func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Union adds every element of other to s and returns how many were new.
func (s Set) Union(other Set) int {
	added := 0
	for it := range other {
		if _, ok := s[it]; !ok {
			s[it] = struct{}{}
			added++
		}
	}
	return added
}

// Sorted returns the elements in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

func (s Set) Clone() Set {
	c := make(Set, len(s))
	for it := range s {
		c[it] = struct{}{}
	}
	return c
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewSet(items...)
	return nil
}

// Bundle is the intelligence gathered from one message or accumulated over a session.
type Bundle struct {
	BankAccounts       Set `json:"bankAccounts"`
	UPIIDs             Set `json:"upiIds"`
	PhishingLinks      Set `json:"phishingLinks"`
	PhoneNumbers       Set `json:"phoneNumbers"`
	SuspiciousKeywords Set `json:"suspiciousKeywords"`
	EmailAddresses     Set `json:"emailAddresses"`
}

// NewBundle returns a bundle with every field initialized and empty.
func NewBundle() Bundle {
	return Bundle{
		BankAccounts:       NewSet(),
		UPIIDs:             NewSet(),
		PhishingLinks:      NewSet(),
		PhoneNumbers:       NewSet(),
		SuspiciousKeywords: NewSet(),
		EmailAddresses:     NewSet(),
	}
}

func (b *Bundle) fields() []*Set {
	return []*Set{
		&b.BankAccounts,
		&b.UPIIDs,
		&b.PhishingLinks,
		&b.PhoneNumbers,
		&b.SuspiciousKeywords,
		&b.EmailAddresses,
	}
}

// Merge unions other into b field by field and returns the number of new items.
// A bundle never loses entries through Merge.
func (b *Bundle) Merge(other Bundle) int {
	added := 0
	dst := b.fields()
	src := other.fields()
	for i := range dst {
		if *dst[i] == nil {
			*dst[i] = NewSet()
		}
		added += dst[i].Union(*src[i])
	}
	return added
}

// Len is the total number of items across all fields.
func (b Bundle) Len() int {
	n := 0
	for _, f := range b.fields() {
		n += len(*f)
	}
	return n
}

// IsEmpty reports whether nothing has been extracted.
func (b Bundle) IsEmpty() bool {
	return b.Len() == 0
}

// Clone returns a deep copy.
func (b Bundle) Clone() Bundle {
	c := NewBundle()
	c.Merge(b)
	return c
}
