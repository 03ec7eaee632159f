package record

import "fmt"

// Operation identifies the kind of record update.
type Operation int

const (
	// OpEdit reports field edits. Modified lists the fields, or is nil for a
	// generic "something changed" notification.
	OpEdit Operation = iota + 1
	// OpCommit reports that pending edits were accepted.
	OpCommit
)

// String returns the lower-case name of the operation.
func (op Operation) String() string {
	switch op {
	case OpEdit:
		return "edit"
	case OpCommit:
		return "commit"
	default:
		return fmt.Sprintf("Operation(%d)", int(op))
	}
}

// Event is the closed set of structural and update events a Collection
// publishes. Subscribers switch on the concrete type.
type Event interface {
	recordEvent()
}

// Load reports a bulk load. AddRecords is true when the records were
// appended rather than replacing the previous content.
type Load struct {
	Records    []*Record
	Successful bool
	AddRecords bool
}

// Clear reports that every record was removed. Removed holds them in their
// former order.
type Clear struct {
	Removed []*Record
}

// Add reports records inserted contiguously starting at Index.
type Add struct {
	Records []*Record
	Index   int
}

// Remove reports removed records. Index is the former position of the first.
type Remove struct {
	Records []*Record
	Index   int
}

// Update reports a change to one record.
type Update struct {
	Record    *Record
	Operation Operation
	Modified  []string
}

func (Load) recordEvent()   {}
func (Clear) recordEvent()  {}
func (Add) recordEvent()    {}
func (Remove) recordEvent() {}
func (Update) recordEvent() {}

// Replace is published on the data feed when the record at Index is swapped
// for another one. It precedes the public Add for New.
type Replace struct {
	Old   *Record
	New   *Record
	Index int
}
