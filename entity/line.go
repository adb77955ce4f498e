package entity

// Line is an undirected edge of the map graph. A train's position along a
// line is an integer in [0, Length]; position 0 corresponds to P0, position
// Length to P1.
type Line struct {
	ID     int `json:"idx"`
	Length int `json:"length"`
	P0     int `json:"p0"`
	P1     int `json:"p1"`
}

// Points returns the line's endpoints as a [2]int, indexed the way
// spec.md §4.3's move_train table references "L.points[i]".
func (l Line) Points() [2]int {
	return [2]int{l.P0, l.P1}
}

// OtherEnd returns the endpoint of l that is not p. It panics if p is not
// one of l's endpoints — callers must only call this after confirming p is
// an endpoint of l.
func (l Line) OtherEnd(p int) int {
	switch p {
	case l.P0:
		return l.P1
	case l.P1:
		return l.P0
	default:
		panic("entity: point is not an endpoint of this line")
	}
}

// HasEndpoint reports whether p is one of l's two endpoints.
func (l Line) HasEndpoint(p int) bool {
	return p == l.P0 || p == l.P1
}
