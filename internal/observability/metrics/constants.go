// Package metrics provides constants used across metric definitions.
package metrics

// Operation label values for datastore metrics.
const (
	// OpSiteGet represents site lookups.
	OpSiteGet = "site_get"
	// OpSiteUpsert represents site administration writes.
	OpSiteUpsert = "site_upsert"
	// OpShiftGet represents shift directory lookups.
	OpShiftGet = "shift_get"
	// OpShiftUpsert represents shift directory writes.
	OpShiftUpsert = "shift_upsert"
	// OpRecordAppend represents audit record inserts together with their latch change.
	OpRecordAppend = "record_append"
	// OpRecordList represents audit history reads.
	OpRecordList = "record_list"
	// OpOpenCheckIn represents open check-in latch lookups.
	OpOpenCheckIn = "open_check_in"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Site lookup results for the registry counter.
const (
	LookupHit      = "hit"
	LookupMiss     = "miss"
	LookupNotFound = "not_found"
	LookupInactive = "inactive"
	LookupError    = "error"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketStart1m is the starting bucket for distance histograms, 1 meter upwards.
	BucketStart1m = 1.0
	// BucketStart64B is the starting bucket for payload size histograms.
	BucketStart64B = 64.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
	// BucketCount20 defines 20 exponential buckets.
	BucketCount20 = 20
)
