package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"truco/internal/config"
	"truco/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const matchesCollection = "matches"

// MongoStore implements ports.MatchStore on a MongoDB collection. Match ids
// are ObjectID hex strings.
type MongoStore struct {
	cli *mongo.Client
	db  *mongo.Database
}

// Connect dials conf.URL and pings the primary.
func Connect(ctx context.Context, conf config.MongoConf) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(conf.URL)
	opts.SetMinPoolSize(uint64(conf.MinPoolSize))
	opts.SetMaxPoolSize(uint64(conf.MaxPoolSize))
	if conf.Username != "" && conf.Password != "" {
		opts.SetAuth(options.Credential{
			Username: conf.Username,
			Password: conf.Password,
		})
	}

	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoStore{cli: cli, db: cli.Database(conf.DB)}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.cli.Disconnect(ctx)
}

func (s *MongoStore) RecordMatchStart(ctx context.Context, start ports.MatchStart) (string, error) {
	id := primitive.NewObjectID()
	if _, err := s.db.Collection(matchesCollection).InsertOne(ctx, toMatchDocument(id, start)); err != nil {
		return "", fmt.Errorf("insert match %s: %w", start.MatchCode, err)
	}
	return id.Hex(), nil
}

// RecordMatchResult sets the result on the start document, or inserts a
// result-only document when the start was never recorded.
func (s *MongoStore) RecordMatchResult(ctx context.Context, result ports.MatchResult) error {
	coll := s.db.Collection(matchesCollection)
	if result.MatchID == "" {
		doc := bson.M{
			"_id":        primitive.NewObjectID(),
			"match_code": result.MatchCode,
			"result":     toResultDocument(result),
		}
		if _, err := coll.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("insert result %s: %w", result.MatchCode, err)
		}
		return nil
	}

	id, err := primitive.ObjectIDFromHex(result.MatchID)
	if err != nil {
		return fmt.Errorf("match id %q: %w", result.MatchID, err)
	}
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"result": toResultDocument(result)}},
	)
	if err != nil {
		return fmt.Errorf("update result %s: %w", result.MatchCode, err)
	}
	if res.MatchedCount == 0 {
		return ErrMatchNotFound
	}
	return nil
}

// FindMatch returns the raw document for id.
func (s *MongoStore) FindMatch(ctx context.Context, matchID string) (bson.M, error) {
	id, err := primitive.ObjectIDFromHex(matchID)
	if err != nil {
		return nil, fmt.Errorf("match id %q: %w", matchID, err)
	}
	var doc bson.M
	err = s.db.Collection(matchesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrMatchNotFound
	}
	return doc, err
}

func toMatchDocument(id primitive.ObjectID, start ports.MatchStart) bson.M {
	players := make(bson.A, 0, len(start.Players))
	for _, p := range start.Players {
		players = append(players, bson.M{
			"player_id": p.PlayerID,
			"name":      p.Name,
			"team":      p.Team,
			"seat":      p.Seat,
		})
	}
	return bson.M{
		"_id":           id,
		"match_code":    start.MatchCode,
		"lobby_id":      start.LobbyID,
		"players":       players,
		"winning_score": start.WinningScore,
		"started_at":    start.StartedAt,
	}
}

func toResultDocument(result ports.MatchResult) bson.M {
	return bson.M{
		"winning_team": result.WinningTeam,
		"winner_score": result.WinnerScore,
		"loser_score":  result.LoserScore,
		"aborted":      result.Aborted,
		"reason":       result.Reason,
		"ended_at":     result.EndedAt,
	}
}

var _ ports.MatchStore = (*MongoStore)(nil)
