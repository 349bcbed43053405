package plangen

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/okian/fairway/internal/domain/model"
)

const dateLayout = "2006-01-02"

// Render writes a human readable summary of gp.
func Render(w io.Writer, gp model.GeneratedPlan) error {
	p := gp.Plan
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Plan %s for player %s\n", p.ID, p.PlayerID)
	fmt.Fprintf(tw, "Horizon:\t%s .. %s\n", p.StartDate.Format(dateLayout), p.EndDate.Format(dateLayout))
	fmt.Fprintf(tw, "Category:\t%s (rank %d, table %s)\n", p.CategoryCode, p.CategoryRank, p.CategoryVersion)
	fmt.Fprintf(tw, "Weekly hours:\t%.1f\n\n", p.WeeklyHours)

	fmt.Fprintln(tw, "PHASE\tWEEKS\tFROM\tTO")
	for _, ph := range p.Phases {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", ph.Phase, ph.Weeks, ph.StartWeek, ph.StartWeek+ph.Weeks-1)
	}

	if len(gp.Schedules) > 0 {
		fmt.Fprintln(tw, "\nTOURNAMENT\tDATE\tIMPORTANCE\tWEEK\tTOPPING FROM\tTAPER DAYS\tNOTES")
		for _, s := range gp.Schedules {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				s.Name, s.Date.Format(dateLayout), s.Importance, s.TournamentWeek,
				s.ToppingStartWeek, s.TaperingDays, scheduleNotes(s))
		}
	}
	if len(gp.Unscheduled) > 0 {
		fmt.Fprintln(tw, "\nOutside the horizon:")
		for _, t := range gp.Unscheduled {
			fmt.Fprintf(tw, "  %s\t%s\n", t.Name, t.Date.Format(dateLayout))
		}
	}

	fmt.Fprintln(tw, "\nWEEK\tSTART\tPHASE\tWINDOW\tMINUTES\tREST DAYS")
	rests := restDays(gp)
	for _, pz := range gp.Periodizations {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n",
			pz.WeekIndex, pz.WeekStart.Format(dateLayout), pz.Phase, windowLabel(pz.Window),
			gp.WeekMinutes(pz.WeekIndex), rests[pz.WeekIndex])
	}

	fmt.Fprintln(tw, "\nSESSION\tDAYS")
	counts := SessionCounts(gp)
	types := make([]string, 0, len(counts))
	for st := range counts {
		types = append(types, string(st))
	}
	slices.Sort(types)
	for _, st := range types {
		fmt.Fprintf(tw, "%s\t%d\n", st, counts[model.SessionType(st)])
	}

	if len(p.Warnings) > 0 {
		fmt.Fprintln(tw, "\nWarnings:")
		for _, wr := range p.Warnings {
			fmt.Fprintf(tw, "  [%s]\t%s\n", wr.Code, wr.Message)
		}
	}
	return tw.Flush()
}

// WriteJSON writes gp as indented JSON.
func WriteJSON(w io.Writer, gp model.GeneratedPlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(gp)
}

// SessionCounts returns the number of days per session type.
func SessionCounts(gp model.GeneratedPlan) map[model.SessionType]int {
	out := make(map[model.SessionType]int)
	for _, d := range gp.Days {
		out[d.SessionType]++
	}
	return out
}

func restDays(gp model.GeneratedPlan) map[int]int {
	out := make(map[int]int, model.HorizonWeeks)
	for _, d := range gp.Days {
		if d.IsRestDay {
			out[d.WeekIndex]++
		}
	}
	return out
}

func windowLabel(w model.WindowKind) string {
	if w == model.WindowNone {
		return "-"
	}
	return string(w)
}

func scheduleNotes(s model.TournamentSchedule) string {
	var notes []string
	if s.Shifted {
		notes = append(notes, fmt.Sprintf("shifted from week %d", s.NominalToppingStart))
	}
	if s.Compressed {
		notes = append(notes, "compressed")
	}
	if len(notes) == 0 {
		return "-"
	}
	return strings.Join(notes, ", ")
}
