package repair

import "fmt"

// Found is the search-termination signal. A worker that commits a repair
// returns it as an error so the search driver cancels the remaining
// evaluations; it is unwrapped with errors.As at the top level and must not
// be discarded anywhere in between.
type Found struct {
	Record *Record
}

func (f *Found) Error() string {
	return fmt.Sprintf("repair found: %s", f.Record.Variant)
}
