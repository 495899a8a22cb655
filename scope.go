package di

// Marker is a scope qualifier.
// A Factory can declare a Marker to say its objects must live
// in a Scope that accepts this Marker (see Scope.BindScopeAnnotation).
type Marker string

// Singleton is the Marker accepted by every root Scope.
const Singleton Marker = "Singleton"

// MarkerList is a slice of Marker.
type MarkerList []Marker

// Copy returns a copy of the MarkerList.
func (l MarkerList) Copy() MarkerList {
	markers := make(MarkerList, len(l))
	copy(markers, l)
	return markers
}

// Contains returns true if the MarkerList contains the given marker.
func (l MarkerList) Contains(marker Marker) bool {
	for _, m := range l {
		if marker == m {
			return true
		}
	}

	return false
}
