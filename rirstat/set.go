package rirstat

import (
	"maps"
	"slices"
)

// RecordSet is a set of records with full-content equality. The same block
// published by two files, or twice by one, is kept once.
type RecordSet map[Record]struct{}

func NewRecordSet() RecordSet {
	return make(RecordSet)
}

// Add inserts rec and reports whether it was new.
func (s RecordSet) Add(rec Record) bool {
	if _, ok := s[rec]; ok {
		return false
	}
	s[rec] = struct{}{}
	return true
}

// AddAll inserts every record and returns how many were new.
func (s RecordSet) AddAll(recs []Record) int {
	n := 0
	for _, rec := range recs {
		if s.Add(rec) {
			n++
		}
	}
	return n
}

func (s RecordSet) Contains(rec Record) bool {
	_, ok := s[rec]
	return ok
}

func (s RecordSet) Len() int { return len(s) }

// Sorted returns the records ordered by Compare.
func (s RecordSet) Sorted() []Record {
	return slices.SortedFunc(maps.Keys(s), Compare)
}
