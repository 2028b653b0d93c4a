// Package extractor runs one invocation: it turns an object notification into parquet records
// or hands the object off to the job queue.
package extractor
