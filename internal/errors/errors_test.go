package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[*ServiceError]int{
		Unauthorized(""):                http.StatusUnauthorized,
		InvalidRequest("bad"):           http.StatusBadRequest,
		NotFound("gone"):                http.StatusNotFound,
		InvalidState("free item"):       http.StatusBadRequest,
		Misconfigured("missing KEY"):    http.StatusInternalServerError,
		UpstreamUnreachable("out", nil): http.StatusBadGateway,
		UpstreamError(500, "boom"):      http.StatusBadGateway,
		UpstreamContract("no url"):      http.StatusBadGateway,
		Internal("oops", nil):           http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, err.HTTPStatus, err.Code)
	}
}

func TestGetServiceErrorUnwrapsChains(t *testing.T) {
	base := NotFound("music not found")
	wrapped := fmt.Errorf("lookup: %w", base)

	se := GetServiceError(wrapped)
	require.NotNil(t, se)
	assert.Equal(t, CodeNotFound, se.Code)

	assert.Nil(t, GetServiceError(fmt.Errorf("plain")))
}

func TestUpstreamErrorKeepsDiagnostics(t *testing.T) {
	se := UpstreamError(503, "unavailable")
	assert.Equal(t, 503, se.Details["upstream_status"])
	assert.Equal(t, "unavailable", se.Details["upstream_body"])
}

func TestWithDetailsChaining(t *testing.T) {
	se := InvalidRequest("itemId is required").WithDetails("field", "itemId")
	assert.Equal(t, "itemId", se.Details["field"])
}
