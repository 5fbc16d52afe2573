package nvd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"martbuild/internal/logging"
	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// DefaultBaseURL is the NVD CVE API 2.0 endpoint
const DefaultBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

// resultsPerPage is the API maximum
const resultsPerPage = 2000

const (
	// Public rate limit: five requests per 30 seconds
	publicDelay = 6 * time.Second
	// With an API key: fifty requests per 30 seconds
	keyedDelay = 600 * time.Millisecond
)

// Client pages through the NVD CVE feed and flattens the records into the
// landing layout. An API key raises the rate limit; without one the client
// spaces requests for the public limit.
type Client struct {
	BaseURL string

	apiKey string
	http   *http.Client
	delay  time.Duration
	logger *logging.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewClient creates an NVD client. apiKey may be empty.
func NewClient(apiKey string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	delay := publicDelay
	if apiKey != "" {
		delay = keyedDelay
	}
	return &Client{
		BaseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		delay:   delay,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// API response shapes, reduced to the fields the landing layout keeps

type apiResponse struct {
	TotalResults    int                `json:"totalResults"`
	Vulnerabilities []apiVulnerability `json:"vulnerabilities"`
}

type apiVulnerability struct {
	CVE apiCVE `json:"cve"`
}

type apiCVE struct {
	ID             string             `json:"id"`
	Published      string             `json:"published"`
	LastModified   string             `json:"lastModified"`
	VulnStatus     string             `json:"vulnStatus"`
	Descriptions   []apiLangValue     `json:"descriptions"`
	Metrics        apiMetrics         `json:"metrics"`
	Weaknesses     []apiWeakness      `json:"weaknesses"`
	References     []json.RawMessage  `json:"references"`
	Configurations []apiConfiguration `json:"configurations"`
}

type apiLangValue struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type apiMetrics struct {
	CVSSMetricV31 []apiCVSSMetric `json:"cvssMetricV31"`
}

type apiCVSSMetric struct {
	CVSSData            apiCVSSData `json:"cvssData"`
	ExploitabilityScore *float64    `json:"exploitabilityScore"`
	ImpactScore         *float64    `json:"impactScore"`
}

type apiCVSSData struct {
	BaseScore          *float64 `json:"baseScore"`
	BaseSeverity       string   `json:"baseSeverity"`
	AttackVector       string   `json:"attackVector"`
	AttackComplexity   string   `json:"attackComplexity"`
	PrivilegesRequired string   `json:"privilegesRequired"`
	UserInteraction    string   `json:"userInteraction"`
}

type apiWeakness struct {
	Description []apiLangValue `json:"description"`
}

type apiConfiguration struct {
	Nodes []apiNode `json:"nodes"`
}

type apiNode struct {
	CPEMatch []apiCPEMatch `json:"cpeMatch"`
}

type apiCPEMatch struct {
	Criteria string `json:"criteria"`
}

// Extract fetches all CVEs published inside [start, end] and returns the
// flattened records in feed order
func (c *Client) Extract(ctx context.Context, start, end time.Time) ([]models.VulnerabilityRecord, error) {
	c.logger.Info("Extracting CVE feed", map[string]interface{}{
		"start": start.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	})

	var out []models.VulnerabilityRecord
	startIndex := 0
	total := -1

	for {
		page, err := c.fetchPage(ctx, start, end, startIndex)
		if err != nil {
			return nil, err
		}
		if total < 0 {
			total = page.TotalResults
			c.logger.Info("CVE feed size", map[string]interface{}{"total": total})
		}
		if len(page.Vulnerabilities) == 0 {
			break
		}

		for _, vuln := range page.Vulnerabilities {
			out = append(out, flattenCVE(vuln.CVE))
		}
		startIndex += len(page.Vulnerabilities)
		if startIndex >= total {
			break
		}

		if err := c.sleep(ctx, c.delay); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCancelled, "CVE extraction cancelled")
		}
	}

	c.logger.Info("CVE extraction complete", map[string]interface{}{"records": len(out)})
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, start, end time.Time, startIndex int) (*apiResponse, error) {
	params := url.Values{}
	params.Set("pubStartDate", start.Format("2006-01-02")+"T00:00:00.000")
	params.Set("pubEndDate", end.Format("2006-01-02")+"T23:59:59.999")
	params.Set("resultsPerPage", strconv.Itoa(resultsPerPage))
	params.Set("startIndex", strconv.Itoa(startIndex))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExtractFailed, "Failed to build NVD request")
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExtractFailed, "NVD request failed").
			WithContext("start_index", startIndex).
			AsRecoverable().
			WithSuggestions("Check network connectivity", "Retry later; the NVD API throttles aggressively")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.New(errors.ErrCodeExtractFailed,
			fmt.Sprintf("NVD API returned status %d", resp.StatusCode)).
			WithContext("start_index", startIndex).
			WithContext("body", string(body)).
			WithSuggestions("Provide an API key to raise the rate limit")
	}

	var page apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExtractFailed, "Failed to decode NVD response")
	}
	return &page, nil
}

// flattenCVE reduces one CVE record to the landing columns: first English
// description, primary CVSS v3.1 metric, joined CWE list and the first CPE
// vendor with up to three distinct products
func flattenCVE(cve apiCVE) models.VulnerabilityRecord {
	rec := models.VulnerabilityRecord{
		CVEID:         cve.ID,
		PublishedDate: parseAPITime(cve.Published),
		ModifiedDate:  parseAPITime(cve.LastModified),
		VulnStatus:    cve.VulnStatus,
	}

	for _, d := range cve.Descriptions {
		if d.Lang == "en" {
			rec.Description = truncate(d.Value, 500)
			break
		}
	}

	if len(cve.Metrics.CVSSMetricV31) > 0 {
		m := cve.Metrics.CVSSMetricV31[0]
		rec.CVSSScore = m.CVSSData.BaseScore
		rec.CVSSSeverity = m.CVSSData.BaseSeverity
		rec.AttackVector = m.CVSSData.AttackVector
		rec.AttackComplexity = m.CVSSData.AttackComplexity
		rec.PrivilegesRequired = m.CVSSData.PrivilegesRequired
		rec.UserInteraction = m.CVSSData.UserInteraction
		rec.ExploitabilityScore = m.ExploitabilityScore
		rec.ImpactScore = m.ImpactScore
	}

	var cwes []string
	for _, weakness := range cve.Weaknesses {
		for _, d := range weakness.Description {
			if d.Lang == "en" {
				cwes = append(cwes, d.Value)
			}
		}
	}
	rec.CWEID = strings.Join(cwes, ", ")

	rec.ReferenceCount = len(cve.References)

	var products []string
	seen := make(map[string]bool)
	for _, config := range cve.Configurations {
		for _, node := range config.Nodes {
			for _, cpe := range node.CPEMatch {
				// CPE 2.3 format: cpe:2.3:a:vendor:product:version:...
				parts := strings.Split(cpe.Criteria, ":")
				if len(parts) < 5 {
					continue
				}
				if rec.Vendor == "" {
					rec.Vendor = parts[3]
				}
				if !seen[parts[4]] && len(products) < 3 {
					seen[parts[4]] = true
					products = append(products, parts[4])
				}
			}
		}
	}
	rec.Product = strings.Join(products, ", ")

	return rec
}

var apiTimeLayouts = []string{
	"2006-01-02T15:04:05.000",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseAPITime(s string) time.Time {
	for _, layout := range apiTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// WriteCSV saves extracted records in the landing file layout the build reads
func WriteCSV(records []models.VulnerabilityRecord, dir string, start, end time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create output directory").
			WithContext("dir", dir)
	}

	name := fmt.Sprintf("cve_data_%s_to_%s.csv",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path) // #nosec G304 - path comes from validated config
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeFileOperation, fmt.Sprintf("Failed to create %s", name))
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"cve_id", "published_date", "modified_date", "vuln_status",
		"description", "cvss_v3_score", "cvss_v3_severity", "attack_vector",
		"attack_complexity", "privileges_required", "user_interaction",
		"exploitability_score", "impact_score", "cwe_id", "vendor", "product",
		"reference_count"}
	if err := w.Write(header); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeFileOperation, fmt.Sprintf("Failed to write %s", name))
	}

	for _, r := range records {
		row := []string{
			r.CVEID, csvDate(r.PublishedDate), csvDate(r.ModifiedDate),
			r.VulnStatus, r.Description, csvFloatPtr(r.CVSSScore),
			r.CVSSSeverity, r.AttackVector, r.AttackComplexity,
			r.PrivilegesRequired, r.UserInteraction,
			csvFloatPtr(r.ExploitabilityScore), csvFloatPtr(r.ImpactScore),
			r.CWEID, r.Vendor, r.Product, strconv.Itoa(r.ReferenceCount),
		}
		if err := w.Write(row); err != nil {
			return "", errors.Wrap(err, errors.ErrCodeFileOperation, fmt.Sprintf("Failed to write %s", name))
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeFileOperation, fmt.Sprintf("Failed to write %s", name))
	}
	return path, nil
}

func csvDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func csvFloatPtr(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
