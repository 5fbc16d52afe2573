package fact

import (
	"martbuild/internal/dimension"
	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// attackVectorNetwork is the NVD enum value for remotely reachable attack
// surfaces
const attackVectorNetwork = "NETWORK"

// Vulnerabilities builds fct_vulnerabilities at one row per CVE record.
// RiskScore stays null for the downstream risk scorer.
func (b *Builder) Vulnerabilities(
	staged []models.VulnerabilityRecord,
	dates, vulnerabilities *dimension.KeyIndex,
) ([]models.VulnerabilityFact, *Stats, error) {
	stats := newStats("fct_vulnerabilities")
	seen := make(map[string]bool, len(staged))
	rows := make([]models.VulnerabilityFact, 0, len(staged))

	for _, rec := range staged {
		if seen[rec.CVEID] {
			return nil, nil, errors.GrainViolationError("fct_vulnerabilities", "cve_id", rec.CVEID)
		}
		seen[rec.CVEID] = true

		rows = append(rows, models.VulnerabilityFact{
			CVEID:                 rec.CVEID,
			PublishedDateKey:      b.resolveDate(dates, rec.PublishedDate, "published_date_key", stats),
			VulnerabilityKey:      b.resolve(vulnerabilities, rec.CVEID, "vulnerability_key", stats),
			CVSSScore:             rec.CVSSScore,
			SeverityTier:          b.severityTier(rec.CVSSScore),
			ExploitabilityScore:   rec.ExploitabilityScore,
			ImpactScore:           rec.ImpactScore,
			ReferenceCount:        rec.ReferenceCount,
			IsRemotelyExploitable: rec.AttackVector == attackVectorNetwork,
			RiskScore:             nil,
			BuiltAt:               b.buildTime,
		})
	}

	stats.Rows = len(rows)
	return rows, stats, nil
}
