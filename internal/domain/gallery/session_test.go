package gallery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func laurelImages(n int) []Image {
	images := make([]Image, n)
	for i := range images {
		images[i] = Image{
			Src: "/assets/Laurel Hill Suites/" + string(rune('a'+i)) + ".jpg",
			Alt: "Laurel Hill Suites",
		}
	}
	return images
}

func TestNewSession(t *testing.T) {
	_, err := NewSession(nil, "empty", DefaultSwipeConfig())
	assert.ErrorIs(t, err, ErrNoImages)

	s, err := NewSession(laurelImages(3), "Laurel Hill", DefaultSwipeConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Index())
	assert.NotEmpty(t, s.ID())
	assert.False(t, s.Autoplay())
	assert.False(t, s.Attempted(0))
}

func TestSession_NavigationWraps(t *testing.T) {
	s, err := NewSession(laurelImages(5), "Laurel Hill", DefaultSwipeConfig())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		s.Next()
	}
	assert.Equal(t, 0, s.Index(), "next applied len times returns to start")

	assert.Equal(t, 4, s.Previous(), "previous from 0 wraps to last")
	assert.Equal(t, 0, s.Next())
}

func TestSession_IndexAlwaysInBounds(t *testing.T) {
	s, err := NewSession(laurelImages(3), "", DefaultSwipeConfig())
	require.NoError(t, err)

	moves := []func() int{s.Next, s.Previous, s.Previous, s.Previous, s.Next, s.Previous, s.Previous}
	for _, move := range moves {
		idx := move()
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, s.Len())
	}
}

func TestSession_NavigationResetsSwipe(t *testing.T) {
	s, err := NewSession(laurelImages(3), "", DefaultSwipeConfig())
	require.NoError(t, err)

	s.Swipe().Start(300, time.Now())
	s.Swipe().Move(250)
	require.Equal(t, 50.0, s.Swipe().Offset())

	s.Next()

	assert.Zero(t, s.Swipe().Offset())
	assert.False(t, s.Swipe().Active())
}

func TestSession_AttemptedOnlyOnce(t *testing.T) {
	s, err := NewSession(laurelImages(3), "", DefaultSwipeConfig())
	require.NoError(t, err)

	assert.True(t, s.MarkAttempted(1))
	assert.False(t, s.MarkAttempted(1))
	assert.False(t, s.MarkAttempted(7))

	s.RecordLoad(1, false)
	state, ok := s.LoadStateOf(1)
	assert.True(t, ok)
	assert.Equal(t, LoadFailed, state)
	assert.True(t, s.Attempted(1), "a failed preload stays attempted")

	s.RecordLoad(2, true)
	assert.False(t, s.Attempted(2), "outcomes for unattempted indices are ignored")
}

func TestSession_PlanPreload(t *testing.T) {
	s, err := NewSession(laurelImages(4), "", DefaultSwipeConfig())
	require.NoError(t, err)

	plan := s.PlanPreload()
	assert.Equal(t, []int{0}, plan.Primary)
	assert.Equal(t, []int{1}, plan.Neighbors, "no wraparound to the last image")

	s.MarkAttempted(0)
	s.MarkAttempted(1)
	s.Next()
	plan = s.PlanPreload()
	assert.Empty(t, plan.Primary)
	assert.Equal(t, []int{2}, plan.Neighbors)

	require.NoError(t, s.GoTo(3))
	plan = s.PlanPreload()
	assert.Equal(t, []int{3}, plan.Primary)
	assert.Equal(t, []int{2}, plan.Neighbors)
}

func TestSession_Snapshot(t *testing.T) {
	s, err := NewSession(laurelImages(2), "Alba", DefaultSwipeConfig())
	require.NoError(t, err)

	s.MarkAttempted(0)
	s.RecordLoad(0, true)
	s.ToggleAutoplay()

	snap := s.Snapshot()
	assert.Equal(t, "Alba", snap.Title)
	assert.Equal(t, 2, snap.Total)
	assert.True(t, snap.CurrentReady)
	assert.True(t, snap.Autoplay)
	assert.Equal(t, LoadOK, snap.Loads[0])

	snap.Loads[0] = LoadFailed
	state, _ := s.LoadStateOf(0)
	assert.Equal(t, LoadOK, state, "snapshot must not alias session state")
}

func TestSwipeTracker_End(t *testing.T) {
	start := time.Unix(0, 0)

	tests := []struct {
		name     string
		from, to float64
		duration time.Duration
		want     Direction
	}{
		{"long slow drag left", 300, 200, time.Second, DirectionNext},
		{"long slow drag right", 100, 200, time.Second, DirectionPrevious},
		{"short slow drag", 300, 270, time.Second, DirectionNone},
		{"short fast flick left", 300, 270, 50 * time.Millisecond, DirectionNext},
		{"exact threshold slow", 300, 250, time.Second, DirectionNone},
		{"tap", 300, 300, 10 * time.Millisecond, DirectionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewSwipeTracker(DefaultSwipeConfig())
			tr.Start(tt.from, start)

			got := tr.End(tt.to, start.Add(tt.duration))

			assert.Equal(t, tt.want, got)
			assert.False(t, tr.Active())
		})
	}
}

func TestSwipeTracker_MoveSuppressesScroll(t *testing.T) {
	tr := NewSwipeTracker(SwipeConfig{})

	assert.False(t, tr.Move(100), "no gesture in progress")

	tr.Start(100, time.Now())
	assert.False(t, tr.Move(95))
	assert.True(t, tr.Move(89))
	assert.Equal(t, 11.0, tr.Offset())

	tr.Cancel()
	assert.False(t, tr.Active())
	assert.Equal(t, DirectionNone, tr.End(0, time.Now()))
}

func TestCommandForKey(t *testing.T) {
	assert.Equal(t, CommandNext, CommandForKey("ArrowRight"))
	assert.Equal(t, CommandPrevious, CommandForKey("ArrowLeft"))
	assert.Equal(t, CommandToggleAutoplay, CommandForKey(" "))
	assert.Equal(t, CommandClose, CommandForKey("Escape"))
	assert.Equal(t, CommandNone, CommandForKey("Enter"))
}
