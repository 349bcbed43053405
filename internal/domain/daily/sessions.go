package daily

import (
	"slices"
	"strings"

	"github.com/okian/fairway/internal/domain/model"
)

// Session rotations. Each active training day of a week takes the next
// entry, offset by the week index so consecutive weeks vary.
var (
	phaseRotation = map[model.PhaseCode][]model.SessionType{
		model.PhaseIndividual: {model.SessionPhysicalConditioning, model.SessionFullSwing, model.SessionMobility, model.SessionShortGame},
		model.PhaseGeneral:    {model.SessionFullSwing, model.SessionShortGame, model.SessionPutting, model.SessionPhysicalConditioning},
		model.PhaseSpecific:   {model.SessionShortGame, model.SessionFullSwing, model.SessionCourseManagement, model.SessionPutting},
		model.PhaseTournament: {model.SessionCoursePlay, model.SessionShortGame, model.SessionPutting, model.SessionMentalPreparation},
	}
	toppingRotation = []model.SessionType{model.SessionTournamentSimulation, model.SessionCoursePlay, model.SessionShortGame, model.SessionMentalPreparation}
	taperRotation   = []model.SessionType{model.SessionPutting, model.SessionShortGame, model.SessionMentalPreparation, model.SessionRecovery}
)

// Advice carries the intake's advisory sections as they affect session
// selection. It never changes minutes or rest days.
type Advice struct {
	// Restricted swaps conditioning work for mobility.
	Restricted bool
	// Focus lists session types to put first in every rotation.
	Focus []model.SessionType
	// NoFacility replaces course play with home practice.
	NoFacility bool
}

// AdviceFrom derives Advice from an intake. Weaknesses come before goal
// focus areas; entries that do not name a session type are ignored.
func AdviceFrom(in *model.PlayerIntake) Advice {
	var adv Advice
	if in == nil {
		return adv
	}
	adv.Restricted = in.Health.Restricted()
	if in.Availability != nil {
		adv.NoFacility = !in.Availability.FacilityAccess && !in.Availability.HomeFacility
	}
	var areas []string
	if in.Weaknesses != nil {
		areas = append(areas, in.Weaknesses.Areas...)
	}
	if in.Goals != nil {
		areas = append(areas, in.Goals.FocusAreas...)
	}
	for _, a := range areas {
		st := model.SessionType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(a)), " ", "_"))
		if known(st) && !slices.Contains(adv.Focus, st) {
			adv.Focus = append(adv.Focus, st)
		}
	}
	return adv
}

func known(st model.SessionType) bool {
	for _, rot := range phaseRotation {
		if slices.Contains(rot, st) {
			return true
		}
	}
	return slices.Contains(toppingRotation, st) || slices.Contains(taperRotation, st)
}

// apply returns an adjusted copy of rotation.
func (a Advice) apply(rotation []model.SessionType) []model.SessionType {
	out := slices.Clone(rotation)
	for i, st := range out {
		switch {
		case a.Restricted && st == model.SessionPhysicalConditioning:
			out[i] = model.SessionMobility
		case a.NoFacility && st == model.SessionCoursePlay:
			out[i] = model.SessionHomePractice
		}
	}
	for i := len(a.Focus) - 1; i >= 0; i-- {
		if j := slices.Index(out, a.Focus[i]); j > 0 {
			st := out[j]
			out = slices.Delete(out, j, j+1)
			out = slices.Insert(out, 0, st)
		}
	}
	return out
}
