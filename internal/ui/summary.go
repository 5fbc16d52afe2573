package ui

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"martbuild/internal/pipeline"
)

// ShowRunSummary renders the per-model outcome table of a pipeline run
func ShowRunSummary(result *pipeline.RunResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Model", "Rows In", "Dropped", "Rows Out", "Unmatched", "Duration"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, m := range result.Models {
		unmatched := 0
		for _, n := range m.Unmatched {
			unmatched += n
		}

		dropped := strconv.Itoa(m.Dropped)
		if m.Dropped > 0 && supportsColor {
			dropped = color.YellowString(dropped)
		}
		unmatchedCell := strconv.Itoa(unmatched)
		if unmatched > 0 && supportsColor {
			unmatchedCell = color.YellowString(unmatchedCell)
		}

		table.Append([]string{
			m.Name,
			strconv.Itoa(m.RowsIn),
			dropped,
			strconv.Itoa(m.RowsOut),
			unmatchedCell,
			formatDuration(m.Duration),
		})
	}
	table.Render()

	fmt.Println()
	if result.Published {
		ShowSuccess(fmt.Sprintf("Published %d models in %s",
			len(result.Models), formatDuration(result.Duration)))
	} else {
		ShowError(fmt.Errorf("build aborted after %s; previous tables left in place",
			formatDuration(result.Duration)))
	}

	showDropDetails(result)
}

// showDropDetails lists per-reason drop counts and unmatched key columns so
// data-quality issues are visible without reading the logs
func showDropDetails(result *pipeline.RunResult) {
	for _, m := range result.Models {
		if len(m.Reasons) > 0 {
			reasons := make([]string, 0, len(m.Reasons))
			for reason, count := range m.Reasons {
				reasons = append(reasons, fmt.Sprintf("%s ×%d", reason, count))
			}
			sort.Strings(reasons)
			ShowWarning(fmt.Sprintf("%s dropped %d rows: %s",
				m.Name, m.Dropped, strings.Join(reasons, ", ")))
		}
		for _, column := range sortedKeys(m.Unmatched) {
			ShowWarning(fmt.Sprintf("%s: %d %s lookups fell back to the sentinel",
				m.Name, m.Unmatched[column], column))
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ShowPlan renders the dependency-ordered build plan
func ShowPlan(levels [][]string) {
	ShowHeader("Build Plan")
	for i, level := range levels {
		fmt.Printf("%s %s\n",
			ColorBold(fmt.Sprintf("Level %d:", i+1)),
			strings.Join(level, ", "))
	}
	fmt.Println()
}
