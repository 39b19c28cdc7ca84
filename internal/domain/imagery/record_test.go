package imagery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RecordTestSuite exercises the delivery state machine
type RecordTestSuite struct {
	suite.Suite
	lazy     ImageRequest
	priority ImageRequest
}

func (s *RecordTestSuite) SetupTest() {
	var err error
	s.lazy, err = NewImageRequest("/assets/Laurel Hill Suites/living.jpg", "Living room", ContextCard)
	require.NoError(s.T(), err)
	s.priority, err = NewImageRequest("/assets/hero.jpg", "Mount Kenya at dawn", ContextHero, WithPriority())
	require.NoError(s.T(), err)
}

func (s *RecordTestSuite) TestInitialState() {
	s.Run("Lazy_StartsOnPlaceholder", func() {
		r := NewRecord(s.lazy, "")

		assert.Equal(s.T(), StatePlaceholder, r.State())
		assert.Equal(s.T(), DefaultPlaceholder(), r.DisplaySource())
		assert.False(s.T(), r.Visible())
	})

	s.Run("Priority_NeverShowsPlaceholder", func() {
		r := NewRecord(s.priority, "")

		assert.Equal(s.T(), StateNativeLoading, r.State())
		assert.Equal(s.T(), s.priority.Source(), r.DisplaySource())
		assert.True(s.T(), r.Visible())
	})
}

func (s *RecordTestSuite) TestVisibility() {
	s.Run("FirstCallTransitions", func() {
		r := NewRecord(s.lazy, "")

		// Act
		first := r.BecomeVisible()
		second := r.BecomeVisible()

		// Assert
		assert.True(s.T(), first)
		assert.False(s.T(), second)
		assert.Equal(s.T(), StateNativeLoading, r.State())
		assert.Equal(s.T(), s.lazy.Source(), r.DisplaySource())

		events := r.Events()
		require.Len(s.T(), events, 1)
		assert.Equal(s.T(), "image.visible", events[0].EventName())
	})

	s.Run("PriorityIsAlreadyVisible", func() {
		r := NewRecord(s.priority, "")
		assert.False(s.T(), r.BecomeVisible())
	})
}

func (s *RecordTestSuite) TestNativeLoad() {
	r := NewRecord(s.lazy, "")

	assert.False(s.T(), r.NativeLoad(), "placeholder load must not count")

	r.BecomeVisible()
	assert.True(s.T(), r.NativeLoad())
	assert.Equal(s.T(), StateLoaded, r.State())
	assert.True(s.T(), r.Loaded())
	assert.False(s.T(), r.NativeLoad())
}

func (s *RecordTestSuite) TestNativeError_SingleRetry() {
	r := NewRecord(s.priority, "")
	ticket, ok := r.BeginCompression()
	require.True(s.T(), ok)
	require.True(s.T(), r.ApplyCompression(ticket, "blob:1234"))
	require.Equal(s.T(), "blob:1234", r.DisplaySource())

	// Act: first failure falls back to the original
	state := r.NativeError()

	// Assert
	assert.Equal(s.T(), StateNativeLoading, state)
	assert.Equal(s.T(), s.priority.Source(), r.DisplaySource())
	assert.True(s.T(), r.FallbackUsed())

	// Act: second failure is terminal
	state = r.NativeError()
	assert.Equal(s.T(), StateErrored, state)
	assert.ErrorIs(s.T(), r.LastError(), ErrLoadFailed)

	// No further retries
	assert.Equal(s.T(), StateErrored, r.NativeError())
	assert.Equal(s.T(), s.priority.Source(), r.DisplaySource())
}

func (s *RecordTestSuite) TestCompression() {
	s.Run("LazyNotVisible_NoTicket", func() {
		r := NewRecord(s.lazy, "")
		_, ok := r.BeginCompression()
		assert.False(s.T(), ok)
	})

	s.Run("InlineSource_NoTicket", func() {
		req, err := NewImageRequest(DefaultPlaceholder(), "", ContextIcon, WithPriority())
		require.NoError(s.T(), err)
		r := NewRecord(req, "")
		_, ok := r.BeginCompression()
		assert.False(s.T(), ok)
	})

	s.Run("OneInFlight", func() {
		r := NewRecord(s.priority, "")
		_, ok := r.BeginCompression()
		require.True(s.T(), ok)
		_, ok = r.BeginCompression()
		assert.False(s.T(), ok)
	})

	s.Run("UpgradeAfterLoad", func() {
		r := NewRecord(s.priority, "")
		ticket, _ := r.BeginCompression()
		require.True(s.T(), r.NativeLoad())

		assert.True(s.T(), r.ApplyCompression(ticket, "blob:abc"))
		assert.Equal(s.T(), "blob:abc", r.DisplaySource())
		assert.Equal(s.T(), StateLoaded, r.State())
		assert.True(s.T(), r.Snapshot().Upgraded)
	})

	s.Run("FailureKeepsOriginal", func() {
		r := NewRecord(s.priority, "")
		ticket, _ := r.BeginCompression()

		assert.True(s.T(), r.FailCompression(ticket, errors.New("decode")))
		assert.Equal(s.T(), s.priority.Source(), r.DisplaySource())
		assert.False(s.T(), r.Compressing())
		assert.Equal(s.T(), "decode", r.Snapshot().LastError)
	})

	s.Run("StaleTicketDiscarded", func() {
		r := NewRecord(s.priority, "")
		ticket, _ := r.BeginCompression()
		r.Retire()

		assert.False(s.T(), r.ApplyCompression(ticket, "blob:late"))
		assert.Equal(s.T(), s.priority.Source(), r.DisplaySource())
	})

	s.Run("ForeignGenerationDiscarded", func() {
		r := NewRecord(s.priority, "")
		ticket, _ := r.BeginCompression()
		ticket.Generation++

		assert.False(s.T(), r.ApplyCompression(ticket, "blob:x"))
		assert.True(s.T(), r.Compressing())
	})
}

func (s *RecordTestSuite) TestLayers() {
	s.Run("LazyOverlayMountsOnVisibility", func() {
		r := NewRecord(s.lazy, "")

		layers := r.Layers()
		assert.True(s.T(), layers.Base.Mounted)
		assert.Equal(s.T(), DefaultPlaceholder(), layers.Base.Source)
		assert.False(s.T(), layers.Overlay.Mounted)

		r.BecomeVisible()
		layers = r.Layers()
		assert.True(s.T(), layers.Overlay.Mounted)
		assert.Equal(s.T(), s.lazy.Source(), layers.Overlay.Source)
		assert.Equal(s.T(), DefaultPlaceholder(), layers.Base.Source)
	})

	s.Run("PriorityBaseIsSource", func() {
		r := NewRecord(s.priority, "")

		layers := r.Layers()
		assert.Equal(s.T(), s.priority.Source(), layers.Base.Source)
		assert.False(s.T(), layers.Overlay.Mounted)
	})
}

func TestRecordTestSuite(t *testing.T) {
	suite.Run(t, new(RecordTestSuite))
}

func TestNewImageRequest_Validation(t *testing.T) {
	_, err := NewImageRequest("  ", "alt", ContextHero)
	assert.ErrorIs(t, err, ErrEmptySource)

	_, err = NewImageRequest("/a.jpg", "alt", UsageContext("banner"))
	assert.ErrorIs(t, err, ErrUnknownContext)

	_, err = NewImageRequest("/a.jpg", "alt", ContextCard, WithSize(-1, 10))
	assert.ErrorIs(t, err, ErrInvalidSize)

	req, err := NewImageRequest("/a.jpg", "alt", ContextCard, WithSize(800, 600), WithSrcSet("/a-480w.jpg 480w"), WithFill())
	require.NoError(t, err)
	assert.Equal(t, 800, req.Width())
	assert.Equal(t, 600, req.Height())
	assert.Equal(t, "/a-480w.jpg 480w", req.SrcSet())
	assert.True(t, req.Fill())
	assert.False(t, req.Priority())

	next, err := req.WithSource("/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/b.jpg", next.Source())
	assert.Equal(t, "/a.jpg", req.Source())
}

func TestParseUsageContext(t *testing.T) {
	for _, c := range UsageContexts() {
		got, err := ParseUsageContext(" " + string(c) + " ")
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseUsageContext("gallery")
	assert.ErrorIs(t, err, ErrUnknownContext)
}

func TestBlurPlaceholder(t *testing.T) {
	assert.Equal(t,
		`data:image/svg+xml,%3Csvg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 400 300"%3E%3Crect fill="%23e5e7eb" width="400" height="300"/%3E%3C/svg%3E`,
		DefaultPlaceholder(),
	)
	assert.Contains(t, BlurPlaceholder(16, 9, "#112233"), `fill="%23112233" width="16" height="9"`)
	assert.True(t, IsDataURI(DefaultPlaceholder()))
	assert.False(t, IsDataURI("/assets/a.jpg"))
}
