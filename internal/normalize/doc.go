// Package normalize converts decoded DICOM elements into normalized values suitable for a flat
// tabular record.
//
// Each VR belongs to a Class, and the class decides the conversion: dates become calendar dates,
// datetimes become UTC instants, person names are split into their seven components, sequences
// are merged into a mapping, and binary payloads are redacted. Whether a value is a scalar or a
// list is decided by the value multiplicity declared in the data dictionary, not by the number
// of values present.
package normalize
