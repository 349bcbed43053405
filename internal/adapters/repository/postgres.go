package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS intakes (
	id           TEXT PRIMARY KEY,
	player_id    TEXT NOT NULL,
	completed_at TIMESTAMPTZ,
	body         JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS intakes_player_completed ON intakes (player_id, completed_at DESC);

CREATE TABLE IF NOT EXISTS plans (
	id                   TEXT PRIMARY KEY,
	player_id            TEXT NOT NULL,
	intake_id            TEXT NOT NULL,
	start_date           DATE NOT NULL,
	end_date             DATE NOT NULL,
	category_code        TEXT NOT NULL,
	category_rank        INTEGER NOT NULL,
	category_version     TEXT NOT NULL,
	weekly_hours         DOUBLE PRECISION NOT NULL,
	base_weeks           INTEGER NOT NULL,
	specialization_weeks INTEGER NOT NULL,
	tournament_weeks     INTEGER NOT NULL,
	phases               JSONB NOT NULL,
	warnings             JSONB NOT NULL DEFAULT '[]',
	unscheduled          JSONB NOT NULL DEFAULT '[]',
	generated_at         TIMESTAMPTZ NOT NULL,
	supersedes_id        TEXT,
	active               BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE UNIQUE INDEX IF NOT EXISTS plans_one_active ON plans (player_id) WHERE active;

CREATE TABLE IF NOT EXISTS periodizations (
	plan_id        TEXT NOT NULL REFERENCES plans (id) ON DELETE CASCADE,
	week_index     INTEGER NOT NULL,
	week_start     DATE NOT NULL,
	phase          TEXT NOT NULL,
	window_kind    TEXT NOT NULL DEFAULT '',
	tournament_ref TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (plan_id, week_index)
);

CREATE TABLE IF NOT EXISTS daily_assignments (
	plan_id           TEXT NOT NULL REFERENCES plans (id) ON DELETE CASCADE,
	day               DATE NOT NULL,
	week_index        INTEGER NOT NULL,
	session_type      TEXT NOT NULL,
	estimated_minutes INTEGER NOT NULL,
	is_rest_day       BOOLEAN NOT NULL,
	forced_rest       BOOLEAN NOT NULL DEFAULT FALSE,
	tournament_ref    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (plan_id, day)
);

CREATE TABLE IF NOT EXISTS tournament_schedules (
	plan_id                    TEXT NOT NULL REFERENCES plans (id) ON DELETE CASCADE,
	tournament_ref             TEXT NOT NULL,
	name                       TEXT NOT NULL,
	event_date                 DATE NOT NULL,
	importance                 TEXT NOT NULL,
	tournament_week            INTEGER NOT NULL,
	topping_start_week         INTEGER NOT NULL,
	tapering_days              INTEGER NOT NULL,
	nominal_topping_start_week INTEGER NOT NULL,
	shifted                    BOOLEAN NOT NULL DEFAULT FALSE,
	compressed                 BOOLEAN NOT NULL DEFAULT FALSE,
	position                   INTEGER NOT NULL,
	PRIMARY KEY (plan_id, tournament_ref)
);`

const planColumns = `id, player_id, intake_id, start_date, end_date, category_code, category_rank,
	category_version, weekly_hours, base_weeks, specialization_weeks, tournament_weeks,
	phases, warnings, unscheduled, generated_at, COALESCE(supersedes_id, ''), active`

// PostgresStore persists intakes and plans in PostgreSQL. Day rows are
// written with COPY inside the plan transaction.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

// OpenPostgres opens and pings a lib/pq connection pool.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresStore wraps db. Call EnsureSchema before first use.
func NewPostgresStore(db *sql.DB, l logger.Logger) *PostgresStore {
	if l == nil {
		l = logger.Nop()
	}
	return &PostgresStore{db: db, logger: l}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveIntake(ctx context.Context, in *model.PlayerIntake) error {
	defer observe("save_intake", time.Now())
	if err := checkIntake(in); err != nil {
		return err
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode intake: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO intakes (id, player_id, completed_at, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET player_id = EXCLUDED.player_id, completed_at = EXCLUDED.completed_at, body = EXCLUDED.body`,
		in.ID, in.PlayerID, nullTime(in.CompletedAt), body)
	if err != nil {
		return fmt.Errorf("save intake %s: %w", in.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetIntake(ctx context.Context, intakeID string) (*model.PlayerIntake, error) {
	defer observe("get_intake", time.Now())
	row := s.db.QueryRowContext(ctx, `SELECT body FROM intakes WHERE id = $1`, intakeID)
	return scanIntake(row, "intake "+intakeID)
}

func (s *PostgresStore) GetCompletedIntake(ctx context.Context, playerID string) (*model.PlayerIntake, error) {
	defer observe("get_completed_intake", time.Now())
	row := s.db.QueryRowContext(ctx, `
		SELECT body FROM intakes
		WHERE player_id = $1 AND completed_at IS NOT NULL
		ORDER BY completed_at DESC, id DESC
		LIMIT 1`, playerID)
	return scanIntake(row, "completed intake for player "+playerID)
}

func scanIntake(row *sql.Row, what string) (*model.PlayerIntake, error) {
	var body []byte
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	var in model.PlayerIntake
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return &in, nil
}

func (s *PostgresStore) SavePlan(ctx context.Context, gp model.GeneratedPlan) (model.GeneratedPlan, error) {
	defer observe("save_plan", time.Now())
	if err := checkPlan(gp); err != nil {
		return model.GeneratedPlan{}, err
	}
	gp = clonePlan(gp)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.GeneratedPlan{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var prevID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM plans WHERE player_id = $1 AND active FOR UPDATE`, gp.Plan.PlayerID).Scan(&prevID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return model.GeneratedPlan{}, fmt.Errorf("lock active plan: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE plans SET active = FALSE WHERE id = $1`, prevID); err != nil {
			return model.GeneratedPlan{}, fmt.Errorf("supersede plan %s: %w", prevID, err)
		}
	}
	gp.Plan.SupersedesID = prevID
	gp.Plan.Active = true

	if err := insertPlan(ctx, tx, gp); err != nil {
		return model.GeneratedPlan{}, err
	}
	if err := copyRows(ctx, tx, gp); err != nil {
		return model.GeneratedPlan{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.GeneratedPlan{}, fmt.Errorf("commit plan %s: %w", gp.Plan.ID, err)
	}
	s.logger.Debug(ctx, "plan stored",
		logger.String("planID", gp.Plan.ID),
		logger.String("supersedes", prevID),
		logger.Int("days", len(gp.Days)))
	return gp, nil
}

func insertPlan(ctx context.Context, tx *sql.Tx, gp model.GeneratedPlan) error {
	p := gp.Plan
	phases, err := json.Marshal(p.Phases)
	if err != nil {
		return fmt.Errorf("encode phases: %w", err)
	}
	warnings, err := json.Marshal(nonNil(p.Warnings))
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}
	unscheduled, err := json.Marshal(nonNil(gp.Unscheduled))
	if err != nil {
		return fmt.Errorf("encode unscheduled: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO plans (id, player_id, intake_id, start_date, end_date, category_code, category_rank,
			category_version, weekly_hours, base_weeks, specialization_weeks, tournament_weeks,
			phases, warnings, unscheduled, generated_at, supersedes_id, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NULLIF($17, ''), $18)`,
		p.ID, p.PlayerID, p.IntakeID, p.StartDate, p.EndDate, p.CategoryCode, p.CategoryRank,
		p.CategoryVersion, p.WeeklyHours, p.BaseWeeks, p.SpecializedWeeks, p.TournamentWeeks,
		phases, warnings, unscheduled, p.GeneratedAt, p.SupersedesID, p.Active)
	if err != nil {
		return insertError(p.ID, err)
	}
	return nil
}

// insertError maps a primary key conflict on plans to ErrDuplicatePlan.
func insertError(planID string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "plans_pkey" {
		return fmt.Errorf("plan %s: %w", planID, ErrDuplicatePlan)
	}
	return fmt.Errorf("insert plan %s: %w", planID, err)
}

var (
	periodColumns = []string{
		"plan_id", "week_index", "week_start", "phase", "window_kind", "tournament_ref",
	}
	dayColumns = []string{
		"plan_id", "day", "week_index", "session_type", "estimated_minutes", "is_rest_day", "forced_rest", "tournament_ref",
	}
	scheduleColumns = []string{
		"plan_id", "tournament_ref", "name", "event_date", "importance", "tournament_week",
		"topping_start_week", "tapering_days", "nominal_topping_start_week", "shifted", "compressed", "position",
	}
)

// copyRows bulk-loads the child rows of gp with COPY FROM STDIN.
func copyRows(ctx context.Context, tx *sql.Tx, gp model.GeneratedPlan) error {
	if err := copyIn(ctx, tx, "periodizations", periodColumns, periodRows(gp)); err != nil {
		return err
	}
	if err := copyIn(ctx, tx, "daily_assignments", dayColumns, dayRows(gp)); err != nil {
		return err
	}
	return copyIn(ctx, tx, "tournament_schedules", scheduleColumns, scheduleRows(gp))
}

func periodRows(gp model.GeneratedPlan) [][]any {
	rows := make([][]any, 0, len(gp.Periodizations))
	for _, w := range gp.Periodizations {
		rows = append(rows, []any{gp.Plan.ID, w.WeekIndex, w.WeekStart, string(w.Phase), string(w.Window), w.TournamentRef})
	}
	return rows
}

func dayRows(gp model.GeneratedPlan) [][]any {
	rows := make([][]any, 0, len(gp.Days))
	for _, d := range gp.Days {
		rows = append(rows, []any{
			gp.Plan.ID, d.Date, d.WeekIndex, string(d.SessionType), d.EstimatedMinutes, d.IsRestDay, d.ForcedRest, d.TournamentRef,
		})
	}
	return rows
}

// scheduleRows keeps the input order in the position column.
func scheduleRows(gp model.GeneratedPlan) [][]any {
	rows := make([][]any, 0, len(gp.Schedules))
	for i, t := range gp.Schedules {
		rows = append(rows, []any{
			gp.Plan.ID, t.TournamentRef, t.Name, t.Date, string(t.Importance), t.TournamentWeek,
			t.ToppingStartWeek, t.TaperingDays, t.NominalToppingStart, t.Shifted, t.Compressed, i,
		})
	}
	return rows
}

func copyIn(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("prepare copy %s: %w", table, err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r...); err != nil {
			return fmt.Errorf("copy %s: %w", table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flush copy %s: %w", table, err)
	}
	return nil
}

func (s *PostgresStore) GetPlan(ctx context.Context, planID string) (model.GeneratedPlan, error) {
	defer observe("get_plan", time.Now())
	row := s.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, planID)
	return s.loadPlan(ctx, row, "plan "+planID)
}

func (s *PostgresStore) ActivePlan(ctx context.Context, playerID string) (model.GeneratedPlan, error) {
	defer observe("active_plan", time.Now())
	row := s.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE player_id = $1 AND active`, playerID)
	return s.loadPlan(ctx, row, "active plan for player "+playerID)
}

func (s *PostgresStore) loadPlan(ctx context.Context, row *sql.Row, what string) (model.GeneratedPlan, error) {
	var gp model.GeneratedPlan
	p, unscheduled, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gp, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return gp, fmt.Errorf("%s: %w", what, err)
	}
	gp.Plan, gp.Unscheduled = p, unscheduled

	if gp.Periodizations, err = s.periodizations(ctx, p.ID); err != nil {
		return model.GeneratedPlan{}, err
	}
	if gp.Days, err = s.days(ctx, p.ID); err != nil {
		return model.GeneratedPlan{}, err
	}
	if gp.Schedules, err = s.schedules(ctx, p.ID); err != nil {
		return model.GeneratedPlan{}, err
	}
	return gp, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (model.AnnualTrainingPlan, []model.Tournament, error) {
	var (
		p                             model.AnnualTrainingPlan
		phases, warnings, unscheduled []byte
		out                           []model.Tournament
	)
	err := row.Scan(&p.ID, &p.PlayerID, &p.IntakeID, &p.StartDate, &p.EndDate, &p.CategoryCode, &p.CategoryRank,
		&p.CategoryVersion, &p.WeeklyHours, &p.BaseWeeks, &p.SpecializedWeeks, &p.TournamentWeeks,
		&phases, &warnings, &unscheduled, &p.GeneratedAt, &p.SupersedesID, &p.Active)
	if err != nil {
		return p, nil, err
	}
	if err := json.Unmarshal(phases, &p.Phases); err != nil {
		return p, nil, fmt.Errorf("decode phases: %w", err)
	}
	if err := json.Unmarshal(warnings, &p.Warnings); err != nil {
		return p, nil, fmt.Errorf("decode warnings: %w", err)
	}
	if err := json.Unmarshal(unscheduled, &out); err != nil {
		return p, nil, fmt.Errorf("decode unscheduled: %w", err)
	}
	if len(p.Warnings) == 0 {
		p.Warnings = nil
	}
	if len(out) == 0 {
		out = nil
	}
	p.StartDate, p.EndDate = model.DateOnly(p.StartDate), model.DateOnly(p.EndDate)
	p.GeneratedAt = p.GeneratedAt.UTC()
	return p, out, nil
}

func (s *PostgresStore) periodizations(ctx context.Context, planID string) ([]model.Periodization, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT week_index, week_start, phase, window_kind, tournament_ref
		FROM periodizations WHERE plan_id = $1 ORDER BY week_index`, planID)
	if err != nil {
		return nil, fmt.Errorf("query periodizations: %w", err)
	}
	defer rows.Close()

	out := make([]model.Periodization, 0, model.HorizonWeeks)
	for rows.Next() {
		w := model.Periodization{PlanID: planID}
		var phase, window string
		if err := rows.Scan(&w.WeekIndex, &w.WeekStart, &phase, &window, &w.TournamentRef); err != nil {
			return nil, fmt.Errorf("scan periodization: %w", err)
		}
		w.WeekStart = model.DateOnly(w.WeekStart)
		w.Phase, w.Window = model.PhaseCode(phase), model.WindowKind(window)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *PostgresStore) days(ctx context.Context, planID string) ([]model.DailyTrainingAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, week_index, session_type, estimated_minutes, is_rest_day, forced_rest, tournament_ref
		FROM daily_assignments WHERE plan_id = $1 ORDER BY day`, planID)
	if err != nil {
		return nil, fmt.Errorf("query daily assignments: %w", err)
	}
	defer rows.Close()

	out := make([]model.DailyTrainingAssignment, 0, model.HorizonDays)
	for rows.Next() {
		d := model.DailyTrainingAssignment{PlanID: planID}
		var session string
		if err := rows.Scan(&d.Date, &d.WeekIndex, &session, &d.EstimatedMinutes, &d.IsRestDay, &d.ForcedRest, &d.TournamentRef); err != nil {
			return nil, fmt.Errorf("scan daily assignment: %w", err)
		}
		d.Date = model.DateOnly(d.Date)
		d.SessionType = model.SessionType(session)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) schedules(ctx context.Context, planID string) ([]model.TournamentSchedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tournament_ref, name, event_date, importance, tournament_week, topping_start_week,
			tapering_days, nominal_topping_start_week, shifted, compressed
		FROM tournament_schedules WHERE plan_id = $1 ORDER BY position`, planID)
	if err != nil {
		return nil, fmt.Errorf("query tournament schedules: %w", err)
	}
	defer rows.Close()

	var out []model.TournamentSchedule
	for rows.Next() {
		t := model.TournamentSchedule{PlanID: planID}
		var importance string
		if err := rows.Scan(&t.TournamentRef, &t.Name, &t.Date, &importance, &t.TournamentWeek, &t.ToppingStartWeek,
			&t.TaperingDays, &t.NominalToppingStart, &t.Shifted, &t.Compressed); err != nil {
			return nil, fmt.Errorf("scan tournament schedule: %w", err)
		}
		t.Date = model.DateOnly(t.Date)
		t.Importance = model.Importance(importance)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListPlans(ctx context.Context, playerID string) ([]model.AnnualTrainingPlan, error) {
	defer observe("list_plans", time.Now())
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+planColumns+` FROM plans
		WHERE player_id = $1
		ORDER BY generated_at DESC, id DESC`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []model.AnnualTrainingPlan
	for rows.Next() {
		p, _, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count plans: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
