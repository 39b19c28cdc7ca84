package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/application/delivery"
	appgallery "github.com/newmanyatta/manyatta/internal/application/gallery"
	appvitals "github.com/newmanyatta/manyatta/internal/application/vitals"
	"github.com/newmanyatta/manyatta/internal/domain/catalog"
	"github.com/newmanyatta/manyatta/internal/domain/vitals"
	"github.com/newmanyatta/manyatta/internal/infrastructure/config"
	"github.com/newmanyatta/manyatta/internal/infrastructure/http/middleware"
	"github.com/newmanyatta/manyatta/internal/infrastructure/performance"
	"github.com/newmanyatta/manyatta/internal/infrastructure/security"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
	"github.com/newmanyatta/manyatta/pkg/errors"
	"github.com/newmanyatta/manyatta/test/testutils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(register func(*gin.RouterGroup)) *gin.Engine {
	mw := middleware.New(&config.Config{}, zap.NewNop(), nil)
	r := gin.New()
	r.Use(mw.RequestID(), mw.ErrorHandler())
	register(r.Group("/api/v1"))
	return r
}

func serve(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) errors.ErrorCode {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestParseWidths(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"blank", "   ", nil, false},
		{"single", "480", []int{480}, false},
		{"spaced", "480, 768 ,1024", []int{480, 768, 1024}, false},
		{"not a number", "480,wide", nil, true},
		{"trailing comma", "480,", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWidths(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.CodeBadRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// stubCompressor returns a fixed result for every source
type stubCompressor struct {
	result performance.Result
	calls  []string
}

func (s *stubCompressor) Compress(_ context.Context, src string, priority bool) performance.Result {
	s.calls = append(s.calls, src)
	r := s.result
	r.Source = src
	return r
}

type ImageHandlersTestSuite struct {
	suite.Suite
	compressor *stubCompressor
	store      *testutils.MemoryBlobStore
	router     *gin.Engine
}

func (s *ImageHandlersTestSuite) SetupTest() {
	s.compressor = &stubCompressor{}
	s.store = testutils.NewMemoryBlobStore()
	service := delivery.NewService(s.compressor, s.store, delivery.Options{}, nil, zap.NewNop())

	h, err := NewImageHandlers(service, service, security.NewValidationService(zap.NewNop()),
		"https://assets.newmanyatta.co.ke", zap.NewNop())
	s.Require().NoError(err)
	s.router = newRouter(h.Register)
}

func (s *ImageHandlersTestSuite) TestSrcSet_DefaultWidths() {
	// Act
	w := serve(s.router, http.MethodGet, "/api/v1/images/srcset?base=/images/rentals/house1", nil)

	// Assert
	s.Require().Equal(http.StatusOK, w.Code)
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("webp", body["format"])
	s.Equal(
		"/images/rentals/house1-480w.webp 480w, /images/rentals/house1-768w.webp 768w, "+
			"/images/rentals/house1-1024w.webp 1024w, /images/rentals/house1-1440w.webp 1440w, "+
			"/images/rentals/house1-1920w.webp 1920w",
		body["srcset"],
	)
}

func (s *ImageHandlersTestSuite) TestSrcSet_CustomWidthsAndFormat() {
	w := serve(s.router, http.MethodGet, "/api/v1/images/srcset?base=/img/a&format=jpg&widths=320,640", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"srcset":"/img/a-320w.jpg 320w, /img/a-640w.jpg 640w"`)
}

func (s *ImageHandlersTestSuite) TestSrcSet_Rejected() {
	tests := []struct {
		name  string
		query string
	}{
		{"missing base", ""},
		{"bad widths", "base=/img/a&widths=480,wide"},
		{"zero width", "base=/img/a&widths=0"},
		{"unknown format", "base=/img/a&format=gif"},
		{"traversal", "base=/img/../../etc/passwd"},
		{"protocol relative", "base=//evil.example/a"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := serve(s.router, http.MethodGet, "/api/v1/images/srcset?"+tt.query, nil)
			s.Equal(http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func (s *ImageHandlersTestSuite) TestMultiFormatSrcSet() {
	w := serve(s.router, http.MethodGet, "/api/v1/images/srcset/multi?base=/img/a&widths=480", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("/img/a-480w.webp 480w", body["webp"])
	s.Equal("/img/a-480w.jpg 480w", body["jpg"])
}

func (s *ImageHandlersTestSuite) TestSizes() {
	w := serve(s.router, http.MethodGet, "/api/v1/images/sizes/hero", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "(max-width: 640px) 100vw, (max-width: 1024px) 90vw, 80vw")
}

func (s *ImageHandlersTestSuite) TestSizes_UnknownContext() {
	w := serve(s.router, http.MethodGet, "/api/v1/images/sizes/banner", nil)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(errors.CodeUnknownUsageContext, errorCode(s.T(), w))
}

func (s *ImageHandlersTestSuite) TestPicture() {
	w := serve(s.router, http.MethodGet, "/api/v1/images/picture?base=/img/a&alt=Lake+view&class=hero", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	s.Contains(body, "<picture>")
	s.Contains(body, `type="image/webp"`)
	s.Contains(body, `alt="Lake view"`)
}

func (s *ImageHandlersTestSuite) TestPicture_RejectsMarkupInAlt() {
	w := serve(s.router, http.MethodGet, "/api/v1/images/picture?base=/img/a&alt=%3Cscript%3E", nil)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ImageHandlersTestSuite) TestPlaceholder_Defaults() {
	w := serve(s.router, http.MethodGet, "/api/v1/images/placeholder", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.EqualValues(400, body["width"])
	s.EqualValues(300, body["height"])
	s.True(strings.HasPrefix(body["placeholder"].(string), "data:image/svg+xml"))
}

func (s *ImageHandlersTestSuite) TestOptimized_ServesCompressedBytes() {
	// Arrange
	s.compressor.result = performance.Result{
		Ref:           "blob:abc",
		Blob:          &outbound.Blob{Data: []byte("jpeg-bytes"), ContentType: "image/jpeg"},
		OriginalBytes: 2048,
		Width:         1024,
		Height:        768,
	}

	// Act
	w := serve(s.router, http.MethodGet, "/api/v1/images/optimized?src=/images/house1.jpg&priority=true", nil)

	// Assert
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("image/jpeg", w.Header().Get("Content-Type"))
	s.Equal("2048", w.Header().Get("X-Original-Bytes"))
	s.Equal("blob:abc", w.Header().Get("X-Blob-Ref"))
	s.Equal("jpeg-bytes", w.Body.String())
	s.Equal([]string{"/images/house1.jpg"}, s.compressor.calls)
}

func (s *ImageHandlersTestSuite) TestOptimized_FallbackRedirectsToOriginal() {
	tests := []struct {
		name     string
		src      string
		location string
	}{
		{"relative source", "/images/house1.jpg", "https://assets.newmanyatta.co.ke/images/house1.jpg"},
		{"absolute source", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.compressor.result = performance.Result{Fallback: true}

			w := serve(s.router, http.MethodGet, "/api/v1/images/optimized?src="+tt.src, nil)

			s.Equal(http.StatusTemporaryRedirect, w.Code)
			s.Equal(tt.location, w.Header().Get("Location"))
			s.Equal("true", w.Header().Get("X-Image-Fallback"))
		})
	}
}

func (s *ImageHandlersTestSuite) TestBlob() {
	ref, err := s.store.Put(context.Background(), &outbound.Blob{Data: []byte("webp"), ContentType: "image/webp"})
	s.Require().NoError(err)

	w := serve(s.router, http.MethodGet, "/api/v1/images/blobs/"+ref, nil)

	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("image/webp", w.Header().Get("Content-Type"))
	s.Equal("webp", w.Body.String())
}

func (s *ImageHandlersTestSuite) TestBlob_NotFound() {
	w := serve(s.router, http.MethodGet, "/api/v1/images/blobs/blob:missing", nil)

	s.Equal(http.StatusNotFound, w.Code)
}

func TestImageHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(ImageHandlersTestSuite))
}

func newAlbum(t *testing.T, slug string, srcs ...string) *catalog.Album {
	t.Helper()
	images := make([]catalog.AlbumImage, len(srcs))
	for i, src := range srcs {
		images[i] = catalog.AlbumImage{Src: src, SortOrder: i}
	}
	album, err := catalog.NewAlbum(slug, "Lakeside Villa", "", images)
	require.NoError(t, err)
	return album
}

func newGalleryRouter(t *testing.T, repo *testutils.MockCatalogRepository) *gin.Engine {
	t.Helper()
	preloader := &testutils.MockPreloader{}
	preloader.On("Preload", mock.Anything, mock.Anything).Return(nil).Maybe()

	service := appgallery.NewService(repo, preloader, appgallery.Options{}, nil, zap.NewNop())
	h := NewGalleryHandlers(service, SessionOptions{}, zap.NewNop())
	return newRouter(h.Register)
}

func TestGalleryHandlers_ListAlbums(t *testing.T) {
	// Arrange
	repo := testutils.NewMockCatalogRepository()
	repo.On("ListAlbums", mock.Anything).Return([]*catalog.Album{
		newAlbum(t, "lakeside-villa", "/images/villa/1.jpg", "/images/villa/2.jpg"),
	}, nil)
	r := newGalleryRouter(t, repo)

	// Act
	w := serve(r, http.MethodGet, "/api/v1/galleries", nil)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Albums []map[string]interface{} `json:"albums"`
		Count  int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "lakeside-villa", body.Albums[0]["slug"])
	assert.EqualValues(t, 2, body.Albums[0]["count"])
	repo.AssertExpectations(t)
}

func TestGalleryHandlers_GetAlbum(t *testing.T) {
	repo := testutils.NewMockCatalogRepository()
	repo.On("FindAlbumBySlug", mock.Anything, "lakeside-villa").
		Return(newAlbum(t, "lakeside-villa", "/images/villa/1.jpg"), nil)
	repo.On("FindAlbumBySlug", mock.Anything, "missing").
		Return((*catalog.Album)(nil), catalog.ErrAlbumNotFound)
	r := newGalleryRouter(t, repo)

	w := serve(r, http.MethodGet, "/api/v1/galleries/lakeside-villa", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"src":"/images/villa/1.jpg"`)

	w = serve(r, http.MethodGet, "/api/v1/galleries/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.CodeAlbumNotFound, errorCode(t, w))
}

func TestGalleryHandlers_ListProperties(t *testing.T) {
	property, err := catalog.NewProperty(catalog.PropertyFields{
		Slug:     "kericho-villa",
		Kind:     catalog.KindMountainVilla,
		Name:     "Kericho Villa",
		Location: "Kericho",
	})
	require.NoError(t, err)

	repo := testutils.NewMockCatalogRepository()
	repo.On("ListProperties", mock.Anything, catalog.KindMountainVilla).
		Return([]*catalog.Property{property}, nil)
	r := newGalleryRouter(t, repo)

	w := serve(r, http.MethodGet, "/api/v1/properties?kind=mountain_villa", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"kericho-villa"`)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = serve(r, http.MethodGet, "/api/v1/properties?kind=castle", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGalleryHandlers_SessionRejectsUnknownAlbum(t *testing.T) {
	repo := testutils.NewMockCatalogRepository()
	repo.On("FindAlbumBySlug", mock.Anything, "missing").
		Return((*catalog.Album)(nil), catalog.ErrAlbumNotFound)
	r := newGalleryRouter(t, repo)

	w := serve(r, http.MethodGet, "/api/v1/galleries/missing/session", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// dialSession opens a slideshow socket for the lakeside-villa album
func dialSession(t *testing.T) *websocket.Conn {
	t.Helper()
	repo := testutils.NewMockCatalogRepository()
	repo.On("FindAlbumBySlug", mock.Anything, "lakeside-villa").Return(
		newAlbum(t, "lakeside-villa", "/images/villa/1.jpg", "/images/villa/2.jpg", "/images/villa/3.jpg"), nil)

	srv := httptest.NewServer(newGalleryRouter(t, repo))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/galleries/lakeside-villa/session"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil skips messages until one of type typ arrives
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]interface{} {
	t.Helper()
	for i := 0; i < 50; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg map[string]interface{}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["type"] == typ {
			return msg
		}
	}
	t.Fatalf("no %s message received", typ)
	return nil
}

func snapshotIndex(t *testing.T, msg map[string]interface{}) int {
	t.Helper()
	snapshot, ok := msg["snapshot"].(map[string]interface{})
	require.True(t, ok, "state message without snapshot: %v", msg)
	return int(snapshot["index"].(float64))
}

// awaitIndex reads state messages until one shows index want. Preload
// completions push states of their own, so earlier indexes may still be
// in flight.
func awaitIndex(t *testing.T, conn *websocket.Conn, want int) {
	t.Helper()
	for i := 0; i < 20; i++ {
		if snapshotIndex(t, readUntil(t, conn, "state")) == want {
			return
		}
	}
	t.Fatalf("slideshow never reached index %d", want)
}

func expectClosedSocket(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	for i := 0; i < 50; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			return
		}
	}
	t.Fatal("socket still open")
}

func TestGalleryHandlers_Session(t *testing.T) {
	conn := dialSession(t)

	// Opening locks page scrolling and pushes the first state
	lock := readUntil(t, conn, "scroll_lock")
	assert.Equal(t, true, lock["locked"])
	state := readUntil(t, conn, "state")
	assert.Equal(t, 0, snapshotIndex(t, state))

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageNext}))
	awaitIndex(t, conn, 1)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageKey, Key: "ArrowLeft"}))
	awaitIndex(t, conn, 0)

	// Wraparound backwards
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessagePrevious}))
	awaitIndex(t, conn, 2)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageClose}))
	release := readUntil(t, conn, "scroll_lock")
	assert.Equal(t, false, release["locked"])
	readUntil(t, conn, "closed")
	expectClosedSocket(t, conn)
}

func TestGalleryHandlers_SessionSwipe(t *testing.T) {
	conn := dialSession(t)
	readUntil(t, conn, "state")

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTouchStart, X: 300}))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTouchMove, X: 250}))
	readUntil(t, conn, "suppress_scroll")

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTouchEnd, X: 200}))
	awaitIndex(t, conn, 1)
}

func TestGalleryHandlers_SessionEscapeCloses(t *testing.T) {
	conn := dialSession(t)
	readUntil(t, conn, "state")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	errMsg := readUntil(t, conn, "error")
	assert.Equal(t, "malformed message", errMsg["message"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "dance"}))
	errMsg = readUntil(t, conn, "error")
	assert.Contains(t, errMsg["message"], "dance")

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageKey, Key: "Escape"}))
	readUntil(t, conn, "closed")
	expectClosedSocket(t, conn)
}

func newVitalsRouter() (*gin.Engine, *appvitals.Monitor) {
	monitor := appvitals.NewMonitor(vitals.DefaultThresholds(), zap.NewNop())
	h := NewVitalsHandlers(monitor, security.NewValidationService(zap.NewNop()), zap.NewNop())
	return newRouter(h.Register), monitor
}

func TestVitalsHandlers_Record(t *testing.T) {
	// Arrange
	r, monitor := newVitalsRouter()
	var reports []vitals.Report
	monitor.Subscribe(func(report vitals.Report) {
		reports = append(reports, report)
	})

	// Act
	w := serve(r, http.MethodPost, "/api/v1/vitals",
		[]byte(`{"name":"LCP","value":1200,"navigation_type":"navigate","url":"/rentals"}`))

	// Assert
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var metric vitals.Metric
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metric))
	assert.Equal(t, vitals.RatingGood, metric.Rating)
	assert.Equal(t, 1200.0, metric.Value)

	require.Len(t, reports, 1)
	assert.Equal(t, "/rentals", reports[0].URL)
}

func TestVitalsHandlers_RecordRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"name":`},
		{"unknown metric", `{"name":"FCP","value":1}`},
		{"negative value", `{"name":"CLS","value":-0.1}`},
		{"missing name", `{"value":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newVitalsRouter()
			w := serve(r, http.MethodPost, "/api/v1/vitals", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestVitalsHandlers_Queries(t *testing.T) {
	r, _ := newVitalsRouter()

	w := serve(r, http.MethodGet, "/api/v1/vitals/metrics/LCP", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodGet, "/api/v1/vitals/metrics/XYZ", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusCreated,
		serve(r, http.MethodPost, "/api/v1/vitals", []byte(`{"name":"CLS","value":0.3}`)).Code)

	w = serve(r, http.MethodGet, "/api/v1/vitals/metrics/CLS", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rating":"poor"`)

	w = serve(r, http.MethodGet, "/api/v1/vitals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = serve(r, http.MethodGet, "/api/v1/vitals/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"poor_count":1`)

	w = serve(r, http.MethodGet, "/api/v1/vitals/report?url=/home", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"url":"/home"`)

	w = serve(r, http.MethodGet, "/api/v1/vitals/debug", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
}
