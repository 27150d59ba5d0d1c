package appointments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DoctorID is either a number or a string on the wire. The original form is
// kept so a round trip serializes identically.
type DoctorID struct {
	value   string
	numeric bool
}

// NumericDoctorID builds a numeric id.
func NumericDoctorID(n int64) DoctorID {
	return DoctorID{value: strconv.FormatInt(n, 10), numeric: true}
}

// StringDoctorID builds a string id.
func StringDoctorID(s string) DoctorID {
	return DoctorID{value: s}
}

func (id DoctorID) String() string { return id.value }

// IsZero reports whether the id is unset.
func (id DoctorID) IsZero() bool { return id.value == "" }

func (id DoctorID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id *DoctorID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = DoctorID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = DoctorID{value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("appointments: doctor id must be a number or string: %w", err)
	}
	*id = DoctorID{value: n.String(), numeric: true}
	return nil
}
