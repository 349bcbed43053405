package plangen

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/okian/fairway/internal/domain/category"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/plan"
)

var importances = []model.Importance{model.ImportanceMinor, model.ImportanceImportant, model.ImportanceMajor}

// Tables are the lookup tables an engine generates with.
type Tables struct {
	Version   string
	Ladder    []category.Category
	TaperDays map[model.Importance]int
	LeadWeeks map[model.Importance]int
}

// TablesOf reads the category ladder and peaking tables from e.
func TablesOf(e *plan.Engine) *Tables {
	t := &Tables{
		Version:   e.Resolver().Version(),
		Ladder:    e.Resolver().Categories(),
		TaperDays: make(map[model.Importance]int, len(importances)),
		LeadWeeks: make(map[model.Importance]int, len(importances)),
	}
	for _, imp := range importances {
		t.TaperDays[imp] = e.Scheduler().TaperDays(imp)
		t.LeadWeeks[imp] = e.Scheduler().LeadWeeks(imp)
	}
	return t
}

// RenderTables writes the ladder, marking the plan's category, and the
// peaking tables.
func RenderTables(w io.Writer, gp model.GeneratedPlan, t *Tables) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	codes := make([]string, 0, len(t.Ladder))
	for _, c := range t.Ladder {
		if c.Code == gp.Plan.CategoryCode {
			codes = append(codes, "["+c.Code+"]")
			continue
		}
		codes = append(codes, c.Code)
	}
	fmt.Fprintf(tw, "\nCategory ladder (%s):\t%s\n", t.Version, strings.Join(codes, " < "))

	fmt.Fprintln(tw, "\nIMPORTANCE\tTAPER DAYS\tLEAD WEEKS")
	for _, imp := range importances {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", imp, t.TaperDays[imp], t.LeadWeeks[imp])
	}
	return tw.Flush()
}
