package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestInspectHandler(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })
	req.NoError(db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("msgid:m-1"), []byte("msg:c-1:0000000000000000001:m-1"))
	}))

	handler := InspectHandler(db, func() map[string]any { return map[string]any{"Connections": 3} })

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/inspect?prefix=msgid:", nil))
	req.Equal(http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	req.Contains(body, "msgid:m-1")
	req.Contains(body, "INDEX")
	req.Contains(body, "Connections: 3")

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/inspect?prefix=user:", nil))
	req.Contains(recorder.Body.String(), "no record under user:")
}
