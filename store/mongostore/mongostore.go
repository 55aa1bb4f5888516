// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package mongostore implements store.Store on MongoDB.
//
// Tallies are adjusted with $inc and votes rely on a unique index over
// (pollId, studentId), so neither needs a transaction or replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/store"
)

// DefaultDatabase is used when the connection string names no database.
const DefaultDatabase = "live_polling"

const (
	pollsCollection        = "polls"
	votesCollection        = "votes"
	participantsCollection = "participants"
)

type pollDoc struct {
	ID        string      `bson:"_id"`
	Question  string      `bson:"question"`
	Options   []optionDoc `bson:"options"`
	Duration  int         `bson:"duration"`
	StartTime time.Time   `bson:"startTime"`
	EndTime   time.Time   `bson:"endTime"`
	Status    string      `bson:"status"`
	CreatedAt time.Time   `bson:"createdAt"`
	UpdatedAt time.Time   `bson:"updatedAt"`
}

type optionDoc struct {
	Text  string `bson:"text"`
	Votes int    `bson:"votes"`
}

type voteDoc struct {
	PollID      string    `bson:"pollId"`
	StudentID   string    `bson:"studentId"`
	OptionIndex int       `bson:"optionIndex"`
	CreatedAt   time.Time `bson:"createdAt"`
}

type participantDoc struct {
	StudentID string    `bson:"studentId"`
	Name      string    `bson:"name"`
	JoinedAt  time.Time `bson:"joinedAt"`
	IsActive  bool      `bson:"isActive"`
}

type Store struct {
	client       *mongo.Client
	polls        *mongo.Collection
	votes        *mongo.Collection
	participants *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Connect dials uri, verifies the server and ensures indexes on database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:       client,
		polls:        db.Collection(pollsCollection),
		votes:        db.Collection(votesCollection),
		participants: db.Collection(participantsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	slog.Info("mongo store ready", "database", database)
	return s, nil
}

// DatabaseFromURI returns the database named in the path of a
// mongodb:// connection string, or DefaultDatabase.
func DatabaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return DefaultDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return DefaultDatabase
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.votes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pollId", Value: 1}, {Key: "studentId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create vote index: %w", err)
	}

	_, err = s.participants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "studentId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create participant index: %w", err)
	}

	_, err = s.polls.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.StatusActive}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create poll indexes: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes every collection. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	for _, c := range []*mongo.Collection{s.polls, s.votes, s.participants} {
		if err := c.Drop(ctx); err != nil {
			return err
		}
	}
	return s.ensureIndexes(ctx)
}

func (s *Store) CreatePoll(ctx context.Context, p *models.Poll) error {
	_, err := s.polls.UpdateMany(ctx,
		bson.M{"status": models.StatusActive},
		bson.M{"$set": bson.M{"status": models.StatusEnded, "updatedAt": p.CreatedAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to end active polls: %w", err)
	}

	doc := pollDoc{
		ID:        p.ID,
		Question:  p.Question,
		Duration:  p.Duration,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	for _, o := range p.Options {
		doc.Options = append(doc.Options, optionDoc{Text: o.Text, Votes: o.Votes})
	}

	if _, err := s.polls.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert poll %s: %w", p.ID, store.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert poll: %w", err)
	}
	return nil
}

func (s *Store) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	var doc pollDoc
	err := s.polls.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query poll: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) ActivePoll(ctx context.Context) (*models.Poll, error) {
	var doc pollDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := s.polls.FindOne(ctx, bson.M{"status": models.StatusActive}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active poll: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) ListPolls(ctx context.Context) ([]*models.Poll, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.polls.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer cursor.Close(ctx)

	polls := []*models.Poll{}
	for cursor.Next(ctx) {
		var doc pollDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode poll: %w", err)
		}
		polls = append(polls, doc.toModel())
	}
	return polls, cursor.Err()
}

func (s *Store) EndPoll(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.polls.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusActive},
		bson.M{"$set": bson.M{"status": models.StatusEnded, "updatedAt": at}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to end poll: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	n, err := s.polls.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to query poll: %w", err)
	}
	if n == 0 {
		return false, store.ErrNotFound
	}
	return false, nil
}

func (s *Store) IncrementVote(ctx context.Context, id string, index int, at time.Time) error {
	field := fmt.Sprintf("options.%d.votes", index)
	res, err := s.polls.UpdateOne(ctx,
		bson.M{"_id": id, fmt.Sprintf("options.%d", index): bson.M{"$exists": true}},
		bson.M{
			"$inc": bson.M{field: 1},
			"$set": bson.M{"updatedAt": at},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment tally: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertVote(ctx context.Context, v *models.Vote) error {
	_, err := s.votes.InsertOne(ctx, voteDoc{
		PollID:      v.PollID,
		StudentID:   v.ParticipantID,
		OptionIndex: v.OptionIndex,
		CreatedAt:   v.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

func (s *Store) HasVoted(ctx context.Context, pollID, participantID string) (bool, error) {
	n, err := s.votes.CountDocuments(ctx,
		bson.M{"pollId": pollID, "studentId": participantID},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return n > 0, nil
}

func (s *Store) RegisterParticipant(ctx context.Context, p *models.Participant) error {
	_, err := s.participants.InsertOne(ctx, participantDoc{
		StudentID: p.ID,
		Name:      p.Name,
		JoinedAt:  p.JoinedAt,
		IsActive:  p.IsActive,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	var doc participantDoc
	err := s.participants.FindOne(ctx, bson.M{"studentId": id, "isActive": true}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query participant: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) DeactivateParticipant(ctx context.Context, id string) error {
	res, err := s.participants.UpdateOne(ctx,
		bson.M{"studentId": id},
		bson.M{"$set": bson.M{"isActive": false}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate participant: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListActiveParticipants(ctx context.Context) ([]*models.Participant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joinedAt", Value: 1}})
	cursor, err := s.participants.Find(ctx, bson.M{"isActive": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer cursor.Close(ctx)

	participants := []*models.Participant{}
	for cursor.Next(ctx) {
		var doc participantDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode participant: %w", err)
		}
		participants = append(participants, doc.toModel())
	}
	return participants, cursor.Err()
}

func (d *pollDoc) toModel() *models.Poll {
	p := &models.Poll{
		ID:        d.ID,
		Question:  d.Question,
		Options:   make([]models.Option, 0, len(d.Options)),
		Duration:  d.Duration,
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, o := range d.Options {
		p.Options = append(p.Options, models.Option{Text: o.Text, Votes: o.Votes})
	}
	return p
}

func (d *participantDoc) toModel() *models.Participant {
	return &models.Participant{
		ID:       d.StudentID,
		Name:     d.Name,
		JoinedAt: d.JoinedAt,
		IsActive: d.IsActive,
	}
}
