package controller

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"

	m "gooze.dev/pkg/testsynth/internal/model"
)

type criterionStat struct {
	criterion string
	covered   int
	total     int
}

func newTable(buf *bytes.Buffer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	return table
}

func renderTestTable(report m.Report) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Test", "Statements", "Success", "Threw", "Timeout", "Skipped", "Failed Asserts"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
	})

	for _, test := range report.Tests {
		table.Append([]string{
			test.Name,
			fmt.Sprintf("%d", len(test.Outcomes)),
			fmt.Sprintf("%d", test.Count("success")),
			fmt.Sprintf("%d", test.Count("threw")),
			fmt.Sprintf("%d", test.Count("timeout")+test.Count("hard-timeout")),
			fmt.Sprintf("%d", test.Count("skipped")),
			fmt.Sprintf("%d", test.FailedAssertions()),
		})
	}

	table.Render()

	return buf.String()
}

func buildCriterionStats(goals []m.GoalReport) []criterionStat {
	stats := map[string]*criterionStat{}

	for _, goal := range goals {
		stat, ok := stats[goal.Criterion]
		if !ok {
			stat = &criterionStat{criterion: goal.Criterion}
			stats[goal.Criterion] = stat
		}

		stat.total++

		if goal.Covered {
			stat.covered++
		}
	}

	list := make([]criterionStat, 0, len(stats))
	for _, stat := range stats {
		list = append(list, *stat)
	}

	slices.SortFunc(list, func(a, b criterionStat) int {
		return strings.Compare(a.criterion, b.criterion)
	})

	return list
}

func renderCoverageTable(report m.Report) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Criterion", "Covered", "Goals", "Coverage"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT,
	})

	covered, total := 0, 0

	for _, stat := range buildCriterionStats(report.Goals) {
		table.Append([]string{
			stat.criterion,
			fmt.Sprintf("%d", stat.covered),
			fmt.Sprintf("%d", stat.total),
			formatPercent(stat.covered, stat.total),
		})

		covered += stat.covered
		total += stat.total
	}

	table.SetFooter([]string{
		fmt.Sprintf("Fitness %.3f", report.Fitness),
		fmt.Sprintf("%d", covered),
		fmt.Sprintf("%d", total),
		formatPercent(covered, total),
	})

	table.Render()

	return buf.String()
}

func renderUncovered(report m.Report) string {
	var b strings.Builder

	for _, goal := range report.Goals {
		if !goal.Covered {
			fmt.Fprintf(&b, "  - %s\n", goal.ID)
		}
	}

	if b.Len() == 0 {
		return ""
	}

	return "Uncovered goals:\n" + b.String()
}

func renderClassTable(classes []m.ClassInfo) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Class", "Constructors", "Methods", "Fields", "Goals"})

	for _, class := range classes {
		table.Append([]string{
			class.Name,
			strings.Join(class.Constructors, ", "),
			strings.Join(class.Methods, ", "),
			strings.Join(class.Fields, ", "),
			formatGoalCounts(class.Goals),
		})
	}

	table.SetFooter([]string{fmt.Sprintf("Total Classes %d", len(classes)), "", "", "", ""})
	table.Render()

	return buf.String()
}

func formatGoalCounts(goals map[string]int) string {
	parts := make([]string, 0, len(goals))

	for _, criterion := range slices.Sorted(maps.Keys(goals)) {
		parts = append(parts, fmt.Sprintf("%s=%d", criterion, goals[criterion]))
	}

	return strings.Join(parts, " ")
}

func formatPercent(covered, total int) string {
	if total == 0 {
		return "-"
	}

	return fmt.Sprintf("%.1f%%", float64(covered)/float64(total)*100)
}
