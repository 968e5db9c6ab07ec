package httpx

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONSetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, 201, map[string]string{"status": "ok"})

	require.Equal(t, 201, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProblemUsesProblemJSONMediaType(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, 422, "Unprocessable", "journal lines must balance")

	require.Equal(t, 422, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var detail ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Equal(t, "Unprocessable", detail.Title)
	require.Equal(t, 422, detail.Status)
	require.Equal(t, "journal lines must balance", detail.Detail)
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"قيد"}`))
	var body struct {
		Name string `json:"name"`
	}
	require.NoError(t, DecodeJSON(req, &body))
	require.Equal(t, "قيد", body.Name)
}
