package appointments

import "encoding/json"

// Clone returns a shallow copy of list that the caller may modify freely.
func Clone(list []Appointment) []Appointment {
	out := make([]Appointment, len(list))
	copy(out, list)
	return out
}

// CloneDoctors returns a copy of list.
func CloneDoctors(list []Doctor) []Doctor {
	out := make([]Doctor, len(list))
	copy(out, list)
	return out
}

// IndexOf returns the position of id in list, or -1.
func IndexOf(list []Appointment, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the appointment with the given id.
func Find(list []Appointment, id string) (Appointment, bool) {
	if i := IndexOf(list, id); i >= 0 {
		return list[i], true
	}
	return Appointment{}, false
}

// Insert prepends a to list unless its id is already present. The input
// slice is never modified.
func Insert(list []Appointment, a Appointment) ([]Appointment, bool) {
	if IndexOf(list, a.ID) >= 0 {
		return list, false
	}
	out := make([]Appointment, 0, len(list)+1)
	out = append(out, a.Normalize())
	out = append(out, list...)
	return out, true
}

// Merge applies p to the matching record and returns a new slice. A missing
// id is a no-op. A status change that breaks the lifecycle returns
// ErrInvalidTransition and the original slice.
func Merge(list []Appointment, p Patch) ([]Appointment, bool, error) {
	i := IndexOf(list, p.ID)
	if i < 0 {
		return list, false, nil
	}
	current := list[i]
	if p.Status != nil {
		if err := CheckTransition(current.Status, *p.Status); err != nil {
			return list, false, err
		}
	}
	out := Clone(list)
	out[i] = p.Apply(current).Normalize()
	return out, true, nil
}

// Remove drops the record with the given id and returns a new slice.
func Remove(list []Appointment, id string) ([]Appointment, bool) {
	i := IndexOf(list, id)
	if i < 0 {
		return list, false
	}
	out := make([]Appointment, 0, len(list)-1)
	out = append(out, list[:i]...)
	out = append(out, list[i+1:]...)
	return out, true
}

// IDs returns the set of ids in list.
func IDs(list []Appointment) map[string]struct{} {
	ids := make(map[string]struct{}, len(list))
	for _, a := range list {
		ids[a.ID] = struct{}{}
	}
	return ids
}

// SameJSON reports whether a and b serialize to the same JSON document.
// Values that fail to marshal are never considered equal.
func SameJSON(a, b any) bool {
	left, err := json.Marshal(a)
	if err != nil {
		return false
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(left) == string(right)
}
