package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
)

const (
	intakeCollection        = "intakes"
	planCollection          = "plans"
	periodizationCollection = "periodizations"
	dailyCollection         = "daily_assignments"
	scheduleCollection      = "tournament_schedules"

	mongoTimeout = 10 * time.Second
)

type intakeDoc struct {
	ID          string             `bson:"_id"`
	PlayerID    string             `bson:"player_id"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty"`
	Intake      model.PlayerIntake `bson:"intake"`
}

type planDoc struct {
	model.AnnualTrainingPlan `bson:",inline"`
	Unscheduled              []model.Tournament `bson:"unscheduled,omitempty"`
}

type scheduleDoc struct {
	model.TournamentSchedule `bson:",inline"`
	Position                 int `bson:"position"`
}

// MongoStore persists intakes and plans in MongoDB. Plans are saved in a
// multi-document transaction, which needs a replica set.
type MongoStore struct {
	client   *mongo.Client
	intakes  *mongo.Collection
	plans    *mongo.Collection
	periods  *mongo.Collection
	days     *mongo.Collection
	schedule *mongo.Collection
	logger   logger.Logger
}

// ConnectMongo connects to uri and pings the primary.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelDisconnect()
		_ = client.Disconnect(disconnectCtx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// NewMongoStore uses database dbName of client. Call EnsureIndexes before
// first use.
func NewMongoStore(client *mongo.Client, dbName string, l logger.Logger) *MongoStore {
	if l == nil {
		l = logger.Nop()
	}
	db := client.Database(dbName)
	return &MongoStore{
		client:   client,
		intakes:  db.Collection(intakeCollection),
		plans:    db.Collection(planCollection),
		periods:  db.Collection(periodizationCollection),
		days:     db.Collection(dailyCollection),
		schedule: db.Collection(scheduleCollection),
		logger:   l,
	}
}

// EnsureIndexes creates the lookup indexes and the one-active-plan-per-player
// constraint.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		s.intakes: {
			{Keys: bson.D{{Key: "player_id", Value: 1}, {Key: "completed_at", Value: -1}}},
		},
		s.plans: {
			{Keys: bson.D{{Key: "player_id", Value: 1}, {Key: "generated_at", Value: -1}}},
			{
				Keys: bson.D{{Key: "player_id", Value: 1}},
				Options: options.Index().
					SetName("one_active_plan").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"active": true}),
			},
		},
		s.periods: {
			{Keys: bson.D{{Key: "plan_id", Value: 1}, {Key: "week_index", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.days: {
			{Keys: bson.D{{Key: "plan_id", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.schedule: {
			{Keys: bson.D{{Key: "plan_id", Value: 1}, {Key: "position", Value: 1}}},
		},
	}
	for coll, models := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *MongoStore) SaveIntake(ctx context.Context, in *model.PlayerIntake) error {
	defer observe("save_intake", time.Now())
	if err := checkIntake(in); err != nil {
		return err
	}
	doc := intakeDoc{ID: in.ID, PlayerID: in.PlayerID, CompletedAt: in.CompletedAt, Intake: *in}
	_, err := s.intakes.ReplaceOne(ctx, bson.M{"_id": in.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save intake %s: %w", in.ID, err)
	}
	return nil
}

func (s *MongoStore) GetIntake(ctx context.Context, intakeID string) (*model.PlayerIntake, error) {
	defer observe("get_intake", time.Now())
	return s.findIntake(ctx, bson.M{"_id": intakeID}, nil, "intake "+intakeID)
}

func (s *MongoStore) GetCompletedIntake(ctx context.Context, playerID string) (*model.PlayerIntake, error) {
	defer observe("get_completed_intake", time.Now())
	filter := bson.M{"player_id": playerID, "completed_at": bson.M{"$ne": nil}}
	opts := options.FindOne().SetSort(bson.D{{Key: "completed_at", Value: -1}, {Key: "_id", Value: -1}})
	return s.findIntake(ctx, filter, opts, "completed intake for player "+playerID)
}

func (s *MongoStore) findIntake(ctx context.Context, filter bson.M, opts *options.FindOneOptions, what string) (*model.PlayerIntake, error) {
	var doc intakeDoc
	var err error
	if opts != nil {
		err = s.intakes.FindOne(ctx, filter, opts).Decode(&doc)
	} else {
		err = s.intakes.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return &doc.Intake, nil
}

func (s *MongoStore) SavePlan(ctx context.Context, gp model.GeneratedPlan) (model.GeneratedPlan, error) {
	defer observe("save_plan", time.Now())
	if err := checkPlan(gp); err != nil {
		return model.GeneratedPlan{}, err
	}
	gp = clonePlan(gp)

	sess, err := s.client.StartSession()
	if err != nil {
		return model.GeneratedPlan{}, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var prev struct {
			ID string `bson:"_id"`
		}
		err := s.plans.FindOneAndUpdate(sc,
			bson.M{"player_id": gp.Plan.PlayerID, "active": true},
			bson.M{"$set": bson.M{"active": false}},
		).Decode(&prev)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("supersede active plan: %w", err)
		}
		gp.Plan.SupersedesID = prev.ID
		gp.Plan.Active = true

		if _, err := s.plans.InsertOne(sc, planDoc{AnnualTrainingPlan: gp.Plan, Unscheduled: gp.Unscheduled}); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, fmt.Errorf("plan %s: %w", gp.Plan.ID, ErrDuplicatePlan)
			}
			return nil, fmt.Errorf("insert plan: %w", err)
		}
		return nil, s.insertChildren(sc, gp)
	})
	if err != nil {
		return model.GeneratedPlan{}, err
	}
	s.logger.Debug(ctx, "plan stored",
		logger.String("planID", gp.Plan.ID),
		logger.String("supersedes", gp.Plan.SupersedesID),
		logger.Int("days", len(gp.Days)))
	return gp, nil
}

// childDocs returns the periodization, day and schedule documents of gp,
// each stamped with the plan id.
func childDocs(gp model.GeneratedPlan) (periods, days, schedules []interface{}) {
	id := gp.Plan.ID
	periods = make([]interface{}, 0, len(gp.Periodizations))
	for _, w := range gp.Periodizations {
		w.PlanID = id
		periods = append(periods, w)
	}
	days = make([]interface{}, 0, len(gp.Days))
	for _, d := range gp.Days {
		d.PlanID = id
		days = append(days, d)
	}
	schedules = make([]interface{}, 0, len(gp.Schedules))
	for i, t := range gp.Schedules {
		t.PlanID = id
		schedules = append(schedules, scheduleDoc{TournamentSchedule: t, Position: i})
	}
	return periods, days, schedules
}

func (s *MongoStore) insertChildren(ctx context.Context, gp model.GeneratedPlan) error {
	periods, days, schedules := childDocs(gp)
	for _, batch := range []struct {
		coll *mongo.Collection
		docs []interface{}
	}{
		{s.periods, periods},
		{s.days, days},
		{s.schedule, schedules},
	} {
		if len(batch.docs) == 0 {
			continue
		}
		if _, err := batch.coll.InsertMany(ctx, batch.docs); err != nil {
			return fmt.Errorf("insert %s: %w", batch.coll.Name(), err)
		}
	}
	return nil
}

func (s *MongoStore) GetPlan(ctx context.Context, planID string) (model.GeneratedPlan, error) {
	defer observe("get_plan", time.Now())
	return s.loadPlan(ctx, bson.M{"_id": planID}, "plan "+planID)
}

func (s *MongoStore) ActivePlan(ctx context.Context, playerID string) (model.GeneratedPlan, error) {
	defer observe("active_plan", time.Now())
	return s.loadPlan(ctx, bson.M{"player_id": playerID, "active": true}, "active plan for player "+playerID)
}

func (s *MongoStore) loadPlan(ctx context.Context, filter bson.M, what string) (model.GeneratedPlan, error) {
	var doc planDoc
	if err := s.plans.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.GeneratedPlan{}, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return model.GeneratedPlan{}, fmt.Errorf("%s: %w", what, err)
	}
	gp := model.GeneratedPlan{Plan: doc.AnnualTrainingPlan, Unscheduled: doc.Unscheduled}
	byPlan := bson.M{"plan_id": gp.Plan.ID}

	if err := findAll(ctx, s.periods, byPlan, "week_index", &gp.Periodizations); err != nil {
		return model.GeneratedPlan{}, err
	}
	if err := findAll(ctx, s.days, byPlan, "date", &gp.Days); err != nil {
		return model.GeneratedPlan{}, err
	}
	var schedules []scheduleDoc
	if err := findAll(ctx, s.schedule, byPlan, "position", &schedules); err != nil {
		return model.GeneratedPlan{}, err
	}
	for _, sd := range schedules {
		gp.Schedules = append(gp.Schedules, sd.TournamentSchedule)
	}
	return gp, nil
}

func findAll(ctx context.Context, coll *mongo.Collection, filter bson.M, sortKey string, out interface{}) error {
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: sortKey, Value: 1}}))
	if err != nil {
		return fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return nil
}

func (s *MongoStore) ListPlans(ctx context.Context, playerID string) ([]model.AnnualTrainingPlan, error) {
	defer observe("list_plans", time.Now())
	opts := options.Find().SetSort(bson.D{{Key: "generated_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.plans.Find(ctx, bson.M{"player_id": playerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []planDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	out := make([]model.AnnualTrainingPlan, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.AnnualTrainingPlan)
	}
	return out, nil
}

func (s *MongoStore) Count(ctx context.Context) (int, error) {
	n, err := s.plans.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count plans: %w", err)
	}
	return int(n), nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
