package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestWriteRows(t *testing.T) {
	var gotPath, gotQuery string
	var body struct {
		Values [][]interface{} `json:"values"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	}))
	defer srv.Close()

	repo, err := newRepository(context.Background(), "sheet-1", nil,
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication(), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	rows := [][]interface{}{{"demo-1", "Paracetamol 500mg", 120}, {"demo-2", "Amoxicillin 250mg", 40}}
	require.NoError(t, repo.WriteRows(context.Background(), "Inventory!A:G", rows))

	assert.True(t, strings.HasSuffix(gotPath, "/v4/spreadsheets/sheet-1/values/Inventory!A:G:append"), gotPath)
	assert.Contains(t, gotQuery, "valueInputOption=USER_ENTERED")
	assert.Contains(t, gotQuery, "insertDataOption=INSERT_ROWS")
	require.Len(t, body.Values, 2)
	assert.Equal(t, "Paracetamol 500mg", body.Values[0][1])
}

func TestWriteRows_Validation(t *testing.T) {
	repo := &GoogleSheetRepository{}
	assert.Error(t, repo.WriteRows(context.Background(), "", [][]interface{}{{"x"}}))
	assert.NoError(t, repo.WriteRows(context.Background(), "Inventory!A:G", nil))
}

func TestWriteRows_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"permission denied"}}`))
	}))
	defer srv.Close()

	repo, err := newRepository(context.Background(), "sheet-1", nil,
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication(), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	err = repo.WriteRows(context.Background(), "Inventory!A:G", [][]interface{}{{"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append rows into range Inventory!A:G")
}
