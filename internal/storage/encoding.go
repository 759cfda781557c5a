package storage

import "strconv"

// Encoding is the physical state of one document id in the store.
//
// Add moves an id from Absent to Plain or Compressed depending on its size;
// Update is the only transition between Plain and Compressed; Delete returns
// it to Absent.
type Encoding uint8

// Encodings.
const (
	Absent Encoding = iota
	Plain
	Compressed
)

const (
	plainExt      = ".json"
	compressedExt = ".json.gz"
)

func (e Encoding) String() string {
	switch e {
	case Absent:
		return "absent"
	case Plain:
		return "plain"
	case Compressed:
		return "compressed"
	default:
		return "Encoding(" + strconv.Itoa(int(e)) + ")"
	}
}

func (e Encoding) ext() string {
	if e == Compressed {
		return compressedExt
	}
	return plainExt
}

// other returns the stored encoding that is not e.
func (e Encoding) other() Encoding {
	if e == Compressed {
		return Plain
	}
	return Compressed
}
