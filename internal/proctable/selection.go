package proctable

// Selection identifies the highlighted row by index and by PID. The PID is
// what survives a rebuild; the index is the fallback. The zero value selects
// nothing; PID 0 is a real process on some platforms.
type Selection struct {
	Index int
	PID   int32
	Valid bool
}

// IndexOf returns the position of pid in rows, or -1.
func IndexOf(rows []Row, pid int32) int {
	for i, r := range rows {
		if r.PID == pid {
			return i
		}
	}
	return -1
}

// Clamp bounds index to [0, n-1]; 0 for an empty table.
func Clamp(index, n int) int {
	if n <= 0 || index < 0 {
		return 0
	}
	if index >= n {
		return n - 1
	}
	return index
}

// Resolve re-locates the selection in a rebuilt table. If the selected PID
// is still present the selection follows it; otherwise the old index is
// clamped into range and adopts that row's PID.
func (s Selection) Resolve(rows []Row) Selection {
	if s.Valid {
		if i := IndexOf(rows, s.PID); i >= 0 {
			return Selection{Index: i, PID: s.PID, Valid: true}
		}
	}
	return At(rows, s.Index)
}

// At selects the row at index, clamped.
func At(rows []Row, index int) Selection {
	if len(rows) == 0 {
		return Selection{}
	}
	i := Clamp(index, len(rows))
	return Selection{Index: i, PID: rows[i].PID, Valid: true}
}

// Move shifts the selection by delta rows, clamped.
func (s Selection) Move(rows []Row, delta int) Selection {
	return At(rows, s.Resolve(rows).Index+delta)
}

// Mark returns a copy of rows with Selected set on the selected row only.
func Mark(rows []Row, s Selection) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	for i := range out {
		out[i].Selected = s.Valid && i == s.Index
	}
	return out
}
