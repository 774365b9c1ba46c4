package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestSuccessEnvelope(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/users")

	New(c).SetCorrelationID("corr-1").Success(gin.H{"id": 7})

	assert.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "Success", env.Message)
	assert.Equal(t, http.StatusOK, env.Code)
	assert.Equal(t, "corr-1", env.CorrelationID)
	assert.NotEmpty(t, env.Timestamp)
	assert.Equal(t, "corr-1", w.Header().Get("X-Correlation-ID"))
}

func TestSecurityHeadersOnEveryResponse(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/users")
	New(c).Success(nil)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
}

func TestCreatedSetsLocation(t *testing.T) {
	c, w := newTestContext(http.MethodPost, "/users")
	New(c).Created(gin.H{"id": 1}, "User created", "/users/20260101000000123456")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/users/20260101000000123456", w.Header().Get("Location"))
	env := decode(t, w)
	assert.Equal(t, "User created", env.Message)
}

func TestNoContent(t *testing.T) {
	c, w := newTestContext(http.MethodDelete, "/users/1")
	New(c).NoContent()

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestBuilderResetBetweenEmissions(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/users")
	b := New(c)

	b.SetCorrelationID("corr-1").
		WithLinks(map[string]string{"self": "/users/1"}).
		WithMeta(map[string]interface{}{"k": "v"}).
		WithDebug(map[string]interface{}{"d": 1}).
		Success(nil)

	first := decode(t, w)
	assert.Equal(t, "corr-1", first.CorrelationID)
	assert.NotEmpty(t, first.Links)
	assert.NotEmpty(t, first.Meta)
	assert.NotEmpty(t, first.Debug)

	// 同一构造器再次终结，上一次的可变状态不得泄漏
	c2, w2 := newTestContext(http.MethodGet, "/users")
	b.c = c2
	b.Success(nil)

	second := decode(t, w2)
	assert.Empty(t, second.CorrelationID)
	assert.Empty(t, second.Links)
	assert.Empty(t, second.Meta)
	assert.Empty(t, second.Debug)
	assert.Empty(t, w2.Header().Get("X-Correlation-ID"))
}

func TestNotFoundResource(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/users/x")
	New(c).NotFoundResource("User")

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "User not found", env.Message)
}

func TestValidationError(t *testing.T) {
	c, w := newTestContext(http.MethodPost, "/users")
	New(c).ValidationError(map[string][]string{
		"email": {"The email must be a valid email address"},
		"name":  {"The name field is required"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decode(t, w)
	assert.Equal(t, "Validation failed", env.Message)
	require.Len(t, env.Errors, 2)
	assert.Equal(t, "email", env.Errors[0].Field)
	assert.Equal(t, "name", env.Errors[1].Field)
}

func TestUnauthorizedSetsRealm(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/user")
	New(c).Unauthorized("Unauthenticated", "api")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Bearer realm="api"`, w.Header().Get("WWW-Authenticate"))
}

func TestForbiddenReasonInMeta(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/users")
	New(c).Forbidden("Forbidden", "insufficient_scope")

	env := decode(t, w)
	assert.Equal(t, "insufficient_scope", env.Meta["reason"])
}

func TestTooManyRequests(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/users")
	New(c).TooManyRequests("Too many requests", 30)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	env := decode(t, w)
	assert.EqualValues(t, 30, env.Meta["retry_after"])
}

func TestPaginatedWithLinks(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/users")
	p := NewPagination(2, 10, 35)
	New(c).Paginated([]int{1, 2, 3}, p, "Success", true)

	env := decode(t, w)
	assert.Equal(t, "/users?page=2&per_page=10", env.Links["self"])
	assert.Equal(t, "/users?page=1&per_page=10", env.Links["first"])
	assert.Equal(t, "/users?page=4&per_page=10", env.Links["last"])
	assert.Equal(t, "/users?page=1&per_page=10", env.Links["prev"])
	assert.Equal(t, "/users?page=3&per_page=10", env.Links["next"])

	data := env.Data.(map[string]interface{})
	pg := data["pagination"].(map[string]interface{})
	assert.EqualValues(t, 2, pg["current_page"])
	assert.EqualValues(t, 4, pg["last_page"])
	assert.EqualValues(t, 35, pg["total"])
	assert.Equal(t, true, pg["has_more_pages"])
}

func TestPaginatedLinksPreserveQueryParams(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/users?search=alice&sort=name&page=2&per_page=10")
	p := NewPagination(2, 10, 35)
	New(c).Paginated([]int{1}, p, "Success", true)

	env := decode(t, w)
	assert.Equal(t, "/users?page=2&per_page=10&search=alice&sort=name", env.Links["self"])
	assert.Equal(t, "/users?page=3&per_page=10&search=alice&sort=name", env.Links["next"])
	assert.Equal(t, "/users?page=1&per_page=10&search=alice&sort=name", env.Links["prev"])
}

func TestPaginationBounds(t *testing.T) {
	p := NewPagination(1, 20, 0)
	assert.Equal(t, 1, p.LastPage)
	assert.Equal(t, 0, p.From)
	assert.Equal(t, 0, p.To)
	assert.False(t, p.HasMorePages)

	p = NewPagination(3, 10, 25)
	assert.Equal(t, 21, p.From)
	assert.Equal(t, 25, p.To)
	assert.False(t, p.HasMorePages)
}

func TestBulkOperationMessage(t *testing.T) {
	c, w := newTestContext(http.MethodPost, "/users/bulk-delete")
	New(c).BulkOperation("delete", 2, 1, []gin.H{
		{"id": 1, "success": true},
		{"id": 2, "success": true},
		{"id": 3, "success": false},
	})

	env := decode(t, w)
	assert.Equal(t, "Bulk delete completed: 2 successful, 1 failed", env.Message)
	data := env.Data.(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	assert.EqualValues(t, 3, summary["total"])
	assert.EqualValues(t, 2, summary["successful"])
	assert.EqualValues(t, 1, summary["failed"])
}

func TestCollectionCount(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/users/search")
	New(c).Collection([]string{"a", "b"}, "Search results")

	env := decode(t, w)
	assert.EqualValues(t, 2, env.Meta["count"])
}

func TestPartialContentRange(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/users")
	New(c).PartialContent([]int{1}, 0, 9, 100, "Partial")

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "items 0-9/100", w.Header().Get("Content-Range"))
}

func TestRequestIDEchoed(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/users")
	c.Request.Header.Set("X-Request-ID", "req-9")
	New(c).Success(nil)

	env := decode(t, w)
	assert.Equal(t, "req-9", env.RequestID)
}

type recordedError struct {
	module  string
	err     error
	context map[string]interface{}
}

type fakeErrorLogger struct {
	calls []recordedError
}

func (f *fakeErrorLogger) LogServiceError(module string, err error, ctx map[string]interface{}) {
	f.calls = append(f.calls, recordedError{module, err, ctx})
}

func TestServerErrorLogsException(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/users")
	logger := &fakeErrorLogger{}

	New(c).WithErrorLogger(logger).ServerError("boom", assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, logger.calls, 1)
	assert.Equal(t, assert.AnError, logger.calls[0].err)
	assert.Equal(t, "/users", logger.calls[0].context["path"])

	env := decode(t, w)
	assert.Equal(t, "boom", env.Message)
	assert.NotEmpty(t, env.Debug["exception"])
}
