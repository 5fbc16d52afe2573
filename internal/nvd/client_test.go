package nvd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "martbuild/pkg/errors"
	"martbuild/pkg/models"
)

func testClient(baseURL string) *Client {
	c := NewClient("", nil)
	c.BaseURL = baseURL
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func cveJSON(id string, score float64) string {
	return fmt.Sprintf(`{
		"cve": {
			"id": %q,
			"published": "2025-01-05T10:15:00.000",
			"lastModified": "2025-01-06T08:00:00.000",
			"vulnStatus": "Analyzed",
			"descriptions": [
				{"lang": "es", "value": "descripción"},
				{"lang": "en", "value": "A heap overflow in the parser."}
			],
			"metrics": {"cvssMetricV31": [{
				"cvssData": {
					"baseScore": %g,
					"baseSeverity": "CRITICAL",
					"attackVector": "NETWORK",
					"attackComplexity": "LOW",
					"privilegesRequired": "NONE",
					"userInteraction": "NONE"
				},
				"exploitabilityScore": 3.9,
				"impactScore": 5.9
			}]},
			"weaknesses": [{"description": [{"lang": "en", "value": "CWE-787"}]}],
			"references": [{}, {}, {}],
			"configurations": [{"nodes": [{"cpeMatch": [
				{"criteria": "cpe:2.3:a:acme:widget:1.0:*:*:*:*:*:*:*"},
				{"criteria": "cpe:2.3:a:acme:gadget:2.0:*:*:*:*:*:*:*"},
				{"criteria": "cpe:2.3:a:acme:widget:1.1:*:*:*:*:*:*:*"}
			]}]}]
		}
	}`, id, score)
}

func TestExtractPagesThroughFeed(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Query().Get("startIndex"))
		assert.Equal(t, "2025-01-01T00:00:00.000", r.URL.Query().Get("pubStartDate"))
		assert.Equal(t, "2025-01-31T23:59:59.999", r.URL.Query().Get("pubEndDate"))

		// Two records total, one per page
		switch r.URL.Query().Get("startIndex") {
		case "0":
			fmt.Fprintf(w, `{"totalResults": 2, "vulnerabilities": [%s]}`, cveJSON("CVE-2025-0001", 9.8))
		default:
			fmt.Fprintf(w, `{"totalResults": 2, "vulnerabilities": [%s]}`, cveJSON("CVE-2025-0002", 5.3))
		}
	}))
	defer srv.Close()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	records, err := testClient(srv.URL).Extract(context.Background(), start, end)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, []string{"0", "1"}, requests)
	assert.Equal(t, "CVE-2025-0001", records[0].CVEID)
	assert.Equal(t, "CVE-2025-0002", records[1].CVEID)
}

func TestExtractFlattensRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"totalResults": 1, "vulnerabilities": [%s]}`, cveJSON("CVE-2025-0001", 9.8))
	}))
	defer srv.Close()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records, err := testClient(srv.URL).Extract(context.Background(), start, start)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "A heap overflow in the parser.", rec.Description)
	require.NotNil(t, rec.CVSSScore)
	assert.InDelta(t, 9.8, *rec.CVSSScore, 1e-9)
	assert.Equal(t, "CRITICAL", rec.CVSSSeverity)
	assert.Equal(t, "NETWORK", rec.AttackVector)
	assert.Equal(t, "CWE-787", rec.CWEID)
	assert.Equal(t, 3, rec.ReferenceCount)
	assert.Equal(t, "acme", rec.Vendor)
	// Distinct products only, feed order
	assert.Equal(t, "widget, gadget", rec.Product)
	assert.Equal(t, time.Date(2025, 1, 5, 10, 15, 0, 0, time.UTC), rec.PublishedDate)
}

func TestExtractEmptyWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"totalResults": 0, "vulnerabilities": []}`)
	}))
	defer srv.Close()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records, err := testClient(srv.URL).Extract(context.Background(), start, start)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExtractSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "rate limited")
	}))
	defer srv.Close()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := testClient(srv.URL).Extract(context.Background(), start, start)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeExtractFailed, apperrors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "403")
}

func TestExtractSendsAPIKeyHeader(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apiKey")
		fmt.Fprint(w, `{"totalResults": 0, "vulnerabilities": []}`)
	}))
	defer srv.Close()

	c := NewClient("secret-key", nil)
	c.BaseURL = srv.URL
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	assert.Equal(t, keyedDelay, c.delay)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := c.Extract(context.Background(), start, start)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotKey)
}

func TestFlattenTruncatesDescription(t *testing.T) {
	long := strings.Repeat("x", 600)
	rec := flattenCVE(apiCVE{
		ID:           "CVE-2025-0001",
		Descriptions: []apiLangValue{{Lang: "en", Value: long}},
	})
	assert.Len(t, rec.Description, 500)
}

func TestWriteCSVLandingLayout(t *testing.T) {
	dir := t.TempDir()
	score := 9.8
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	path, err := WriteCSV([]models.VulnerabilityRecord{{
		CVEID:         "CVE-2025-0001",
		PublishedDate: time.Date(2025, 1, 5, 10, 15, 0, 0, time.UTC),
		CVSSScore:     &score,
		CVSSSeverity:  "CRITICAL",
	}}, dir, start, end)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "cve_data_2025-01-01_to_2025-01-31.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "cve_id,published_date"))
	assert.Contains(t, lines[1], "CVE-2025-0001,2025-01-05,")
	assert.Contains(t, lines[1], "9.8,CRITICAL")
}
