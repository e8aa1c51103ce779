package domain

import (
	m "gooze.dev/pkg/testsynth/internal/model"
	"gooze.dev/pkg/testsynth/pkg/spill"
)

// coverageScoreFromReports returns the share of covered goals over every
// report. A run without goals scores 1.
func coverageScoreFromReports(reports spill.Spill[m.Report]) (float64, error) {
	covered := 0
	total := 0

	err := reports.Range(func(_ uint64, report m.Report) error {
		for _, goal := range report.Goals {
			total++

			if goal.Covered {
				covered++
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return ratio(covered, total), nil
}

func ratio(covered, total int) float64 {
	if total == 0 {
		return 1
	}

	return float64(covered) / float64(total)
}
