/*
Package record turns decoded DICOM data sets into flat records.

A Record maps keywords to normalized values. Sequences are merged into a single mapping per
top-level element, so nesting beyond one level does not appear as separate columns. Every record
carries four provenance fields and the partition field:

	SOURCE_S3_BUCKET, SOURCE_S3_REGION, SOURCE_S3_KEY, SOURCE_S3_ARCHIVE_PATH

When the data set has no element for the partition field, it defaults to 1979-01-01.
*/
package record
