// pkg/core/sorting.go
package core

// SortingType selects how a category's content is grouped into blocks.
type SortingType uint8

const (
	SortByType SortingType = iota
	SortByDistance
	SortByTime
	SortByName
)

var sortingTypeNames = [...]string{"ByType", "ByDistance", "ByTime", "ByName"}

func (s SortingType) String() string {
	if int(s) >= len(sortingTypeNames) {
		return ""
	}
	return sortingTypeNames[s]
}

// ParseSortingType parses the names stored in the metadata sidecar.
func ParseSortingType(s string) (SortingType, bool) {
	for i, name := range sortingTypeNames {
		if name == s {
			return SortingType(i), true
		}
	}
	return 0, false
}

// SortedBlock is a named, ordered bucket of marks and tracks.
type SortedBlock struct {
	Name     string
	MarkIDs  []MarkID
	TrackIDs []TrackID
}

// Empty reports whether the block holds nothing.
func (b SortedBlock) Empty() bool {
	return len(b.MarkIDs) == 0 && len(b.TrackIDs) == 0
}

// SortStatus is the outcome of an asynchronous sort.
type SortStatus uint8

const (
	SortCompleted SortStatus = iota
	SortCancelled
)

func (s SortStatus) String() string {
	if s == SortCancelled {
		return "Cancelled"
	}
	return "Completed"
}
