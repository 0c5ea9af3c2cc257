// Package multipart decides how a file of a given size is split into parts
// under the object store's multipart limits.
package multipart

const (
	MiB = int64(1) << 20
	GiB = int64(1) << 30
)

// Limits are the storage service constraints a plan must satisfy.
type Limits struct {
	MinPartSize       int64
	PreferredPartSize int64
	MaxPartSize       int64
	MaxParts          int64
}

// DefaultLimits mirrors the S3 multipart limits with a 50 MiB starting part.
var DefaultLimits = Limits{
	MinPartSize:       5 * MiB,
	PreferredPartSize: 50 * MiB,
	MaxPartSize:       5 * GiB,
	MaxParts:          10000,
}

// Result is a multipart plan for one file.
type Result struct {
	PartSize     int64
	PartCount    int64
	UseMultipart bool
}

// WithPreferredPartSize returns a copy of l starting from size instead of
// the default preferred part size. Non-positive sizes are ignored.
func (l Limits) WithPreferredPartSize(size int64) Limits {
	if size > 0 {
		l.PreferredPartSize = size
	}
	return l
}

// MaxObjectSize is the largest file every clamp can hold for at once.
func (l Limits) MaxObjectSize() int64 {
	return l.MaxPartSize * l.MaxParts
}

// Plan computes part size and count for fileSize.
//
// The part-count ceiling is corrected before the size bounds, and the
// minimum part size is applied last so it always has the final word.
func (l Limits) Plan(fileSize int64) Result {
	if fileSize < 0 {
		fileSize = 0
	}

	partSize := l.PreferredPartSize
	partCount := ceilDiv(fileSize, partSize)

	if partCount > l.MaxParts {
		partSize = ceilDiv(fileSize, l.MaxParts)
		partCount = l.MaxParts
	}

	if partSize > l.MaxPartSize {
		partSize = l.MaxPartSize
		partCount = ceilDiv(fileSize, partSize)
	}

	if partSize < l.MinPartSize {
		partSize = l.MinPartSize
		partCount = ceilDiv(fileSize, partSize)
	}

	return Result{
		PartSize:     partSize,
		PartCount:    partCount,
		UseMultipart: fileSize > l.MinPartSize && partCount > 1,
	}
}

// Plan computes a plan with DefaultLimits.
func Plan(fileSize int64) Result {
	return DefaultLimits.Plan(fileSize)
}

func ceilDiv(a, b int64) int64 {
	if a == 0 {
		return 0
	}
	return (a-1)/b + 1
}
