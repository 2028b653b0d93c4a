// Package sink writes batches of records to an object store as a Hive partitioned parquet
// dataset.
package sink
