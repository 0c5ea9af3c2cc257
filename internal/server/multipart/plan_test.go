package multipart

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlan_Examples(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want Result
	}{
		{
			name: "120 MiB splits into three preferred parts",
			size: 120 * MiB,
			want: Result{PartSize: 50 * MiB, PartCount: 3, UseMultipart: true},
		},
		{
			name: "2 MiB stays single-shot",
			size: 2 * MiB,
			want: Result{PartSize: 50 * MiB, PartCount: 1, UseMultipart: false},
		},
		{
			name: "exactly the minimum part size",
			size: 5 * MiB,
			want: Result{PartSize: 50 * MiB, PartCount: 1, UseMultipart: false},
		},
		{
			name: "exactly one preferred part",
			size: 50 * MiB,
			want: Result{PartSize: 50 * MiB, PartCount: 1, UseMultipart: false},
		},
		{
			name: "one byte over one preferred part",
			size: 50*MiB + 1,
			want: Result{PartSize: 50 * MiB, PartCount: 2, UseMultipart: true},
		},
		{
			name: "zero bytes",
			size: 0,
			want: Result{PartSize: 50 * MiB, PartCount: 0, UseMultipart: false},
		},
		{
			name: "part count ceiling raises part size",
			size: 1000 * GiB,
			want: Result{PartSize: 107374183, PartCount: 10000, UseMultipart: true},
		},
		{
			name: "largest plannable object",
			size: 5 * GiB * 10000,
			want: Result{PartSize: 5 * GiB, PartCount: 10000, UseMultipart: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plan(tt.size))
		})
	}
}

func TestPlan_MinimumPartSizeHasFinalWord(t *testing.T) {
	limits := DefaultLimits.WithPreferredPartSize(1 * MiB)

	got := limits.Plan(12 * MiB)

	assert.Equal(t, 5*MiB, got.PartSize)
	assert.Equal(t, int64(3), got.PartCount)
	assert.True(t, got.UseMultipart)
}

func TestWithPreferredPartSize_IgnoresNonPositive(t *testing.T) {
	assert.Equal(t, DefaultLimits, DefaultLimits.WithPreferredPartSize(0))
	assert.Equal(t, DefaultLimits, DefaultLimits.WithPreferredPartSize(-1))
}

func TestPlan_NegativeSizeTreatedAsZero(t *testing.T) {
	assert.Equal(t, Plan(0), Plan(-10))
}

func TestPlan_NoMultipartAtOrBelowMinimum(t *testing.T) {
	for size := int64(0); size <= 5*MiB; size += 64 * 1024 {
		assert.False(t, Plan(size).UseMultipart, "size %d", size)
	}
	assert.False(t, Plan(5*MiB).UseMultipart)
}

func TestPlan_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	limits := DefaultLimits
	max := limits.MaxObjectSize()

	sizes := []int64{1, 5*MiB + 1, 50 * MiB, 500 * GiB, 500*GiB + 1, max - 1, max}
	for i := 0; i < 2000; i++ {
		sizes = append(sizes, rng.Int63n(max)+1)
	}

	for _, size := range sizes {
		p := limits.Plan(size)

		assert.GreaterOrEqual(t, p.PartCount*p.PartSize, size, "coverage for %d", size)
		assert.LessOrEqual(t, p.PartCount, limits.MaxParts, "count for %d", size)
		assert.GreaterOrEqual(t, p.PartSize, limits.MinPartSize, "min size for %d", size)
		assert.LessOrEqual(t, p.PartSize, limits.MaxPartSize, "max size for %d", size)
		if p.UseMultipart {
			assert.Greater(t, p.PartCount, int64(1))
		}
	}
}

func TestPlan_Deterministic(t *testing.T) {
	assert.Equal(t, Plan(777*MiB), Plan(777*MiB))
}
