package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

func TestValidFrameSize(t *testing.T) {
	assert.True(t, ValidFrameSize(FrameSmall))
	assert.True(t, ValidFrameSize(FrameMedium))
	assert.True(t, ValidFrameSize(FrameLarge))
	assert.False(t, ValidFrameSize("small"))
	assert.False(t, ValidFrameSize("XL"))
	assert.False(t, ValidFrameSize(""))
}

func TestEvaluate(t *testing.T) {
	caps := Capacities{Small: 2, Medium: 1, Large: 0}

	tests := []struct {
		name      string
		existing  []string
		requested string
		admit     bool
		dist      Distribution
	}{
		{
			name:      "empty class admits",
			existing:  nil,
			requested: FrameSmall,
			admit:     true,
			dist:      Distribution{},
		},
		{
			name:      "one spot left in requested size",
			existing:  []string{FrameSmall},
			requested: FrameSmall,
			admit:     true,
			dist:      Distribution{Small: 1},
		},
		{
			name:      "requested size exhausted",
			existing:  []string{FrameSmall, FrameSmall},
			requested: FrameSmall,
			admit:     false,
			dist:      Distribution{Small: 2},
		},
		{
			name:      "other size still open when one is full",
			existing:  []string{FrameSmall, FrameSmall},
			requested: FrameMedium,
			admit:     true,
			dist:      Distribution{Small: 2},
		},
		{
			name:      "zero-capacity size never admits",
			existing:  nil,
			requested: FrameLarge,
			admit:     false,
			dist:      Distribution{},
		},
		{
			name:      "unknown size never admits",
			existing:  []string{FrameMedium},
			requested: "HUGE",
			admit:     false,
			dist:      Distribution{Medium: 1},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			admit, dist := Evaluate(tc.existing, caps, tc.requested)
			assert.Equal(t, tc.admit, admit)
			assert.Equal(t, tc.dist, dist)
		})
	}
}

func TestDistributionTotal(t *testing.T) {
	assert.Equal(t, 0, Distribution{}.Total())
	assert.Equal(t, 6, Distribution{Small: 1, Medium: 2, Large: 3}.Total())
}

func TestCapacitiesOf(t *testing.T) {
	c := &model.Class{SmallCapacity: 3, MediumCapacity: 2, LargeCapacity: 1}
	assert.Equal(t, Capacities{Small: 3, Medium: 2, Large: 1}, CapacitiesOf(c))
}
