package metrc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPackage(t *testing.T) {
	const label = "1A4060300002199000012345"

	t.Run("extracts id and metadata", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/packages/v1/"+label, r.URL.Path)
			assert.Equal(t, "MAN000042", r.URL.Query().Get("licenseNumber"))
			fmt.Fprint(w, `{
				"Id": 4417,
				"Label": "`+label+`",
				"SourcePackageLabels": "1A4060300001699000000071",
				"Item": {"Name": "AB-100: Premium OG Kush", "NumberOfDoses": 10, "Ingredients": "cannabis"}
			}`)
		}))
		defer server.Close()

		pkg, err := newTestClient(server.URL).LookupPackage(context.Background(), "MAN000042", label)
		require.NoError(t, err)
		assert.Equal(t, int64(4417), pkg.ID)
		assert.Equal(t, "AB-100: Premium OG Kush", pkg.ProductName)
		assert.Equal(t, "1A4060300001699000000071", pkg.SourcePackageLabel)
		assert.Equal(t, 10, pkg.DoseCount)
	})

	t.Run("missing id fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"Label": "x"}`)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).LookupPackage(context.Background(), "MAN000042", label)
		assert.ErrorIs(t, err, ErrPackageIDNotFound)
	})

	t.Run("product name falls back to label", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"Id": 9}`)
		}))
		defer server.Close()

		pkg, err := newTestClient(server.URL).LookupPackage(context.Background(), "MAN000042", label)
		require.NoError(t, err)
		assert.Equal(t, label, pkg.ProductName)
		assert.Equal(t, Unavailable, pkg.SourcePackageLabel)
	})

	t.Run("non-object response is a schema error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"Id": 9}]`)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).LookupPackage(context.Background(), "MAN000042", label)
		assert.ErrorIs(t, err, ErrUnexpectedSchema)
	})

	t.Run("resolves source label via secondary call", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/packages/v1/" + label:
				fmt.Fprint(w, `{"Id": 4417, "SourcePackageId": 300}`)
			case "/packages/v1/300":
				fmt.Fprint(w, `{"Id": 300, "Label": "1A4060300001699000000071"}`)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		pkg, err := newTestClient(server.URL).LookupPackage(context.Background(), "MAN000042", label)
		require.NoError(t, err)
		assert.Equal(t, "1A4060300001699000000071", pkg.SourcePackageLabel)
	})

	t.Run("secondary call failure degrades to sentinel", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/packages/v1/" + label:
				fmt.Fprint(w, `{"Id": 4417, "SourcePackageId": 300}`)
			default:
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))
		defer server.Close()

		pkg, err := newTestClient(server.URL).LookupPackage(context.Background(), "MAN000042", label)
		require.NoError(t, err, "best-effort resolution must not fail the lookup")
		assert.Equal(t, Unavailable, pkg.SourcePackageLabel)
	})
}
