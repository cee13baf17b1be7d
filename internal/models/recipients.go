package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RecipientSet is an ordered set of user ids. It is persisted as a compact
// comma-joined list ("3,7,12"); Value and Scan are the only places that know
// the encoding, along with RecipientContainsSQL for queries that filter on it.
type RecipientSet struct {
	ids []int64
}

// NewRecipientSet builds a set from ids, dropping duplicates.
func NewRecipientSet(ids ...int64) RecipientSet {
	var s RecipientSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s RecipientSet) search(id int64) (int, bool) {
	i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= id })
	return i, i < len(s.ids) && s.ids[i] == id
}

// Contains reports whether id is in the set.
func (s RecipientSet) Contains(id int64) bool {
	_, ok := s.search(id)
	return ok
}

// Add inserts id and reports whether the set grew.
func (s *RecipientSet) Add(id int64) bool {
	i, ok := s.search(id)
	if ok {
		return false
	}
	s.ids = append(s.ids, 0)
	copy(s.ids[i+1:], s.ids[i:])
	s.ids[i] = id
	return true
}

// Len returns the number of ids.
func (s RecipientSet) Len() int {
	return len(s.ids)
}

// IDs returns a copy of the ids in ascending order.
func (s RecipientSet) IDs() []int64 {
	out := make([]int64, len(s.ids))
	copy(out, s.ids)
	return out
}

// String returns the comma-joined encoding.
func (s RecipientSet) String() string {
	if len(s.ids) == 0 {
		return ""
	}
	var b strings.Builder
	for i, id := range s.ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

// ParseRecipientSet decodes a comma-joined list.
func ParseRecipientSet(raw string) (RecipientSet, error) {
	var s RecipientSet
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s, nil
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return RecipientSet{}, fmt.Errorf("recipient set: invalid id %q: %w", part, err)
		}
		s.Add(id)
	}
	return s, nil
}

// Value implements driver.Valuer.
func (s RecipientSet) Value() (driver.Value, error) {
	return s.String(), nil
}

// RecipientContainsSQL returns a SQL predicate that is true when the recipient
// list stored in column contains the user id bound to param.
func RecipientContainsSQL(column, param string) string {
	return fmt.Sprintf("position(',' || %s::text || ',' in ',' || %s || ',') > 0", param, column)
}

// Scan implements sql.Scanner.
func (s *RecipientSet) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = RecipientSet{}
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("recipient set: unsupported source %T", src)
	}
	parsed, err := ParseRecipientSet(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON renders the set as a JSON array.
func (s RecipientSet) MarshalJSON() ([]byte, error) {
	if s.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.ids)
}

// UnmarshalJSON accepts a JSON array of ids.
func (s *RecipientSet) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewRecipientSet(ids...)
	return nil
}
