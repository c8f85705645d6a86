package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/immxrtalbeast/axenix_signal/internal/domain"
	"github.com/immxrtalbeast/axenix_signal/internal/repository/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoMeetingRepository struct {
	collection *mongo.Collection
}

func NewMongoMeetingRepository(db *mongo.Database, collection string) *MongoMeetingRepository {
	return &MongoMeetingRepository{collection: db.Collection(collection)}
}

func (r *MongoMeetingRepository) Create(ctx context.Context, meeting *domain.Meeting) error {
	const op = "repository.mongo.meeting.create"
	if meeting == nil {
		return errors.New("meeting is nil")
	}

	_, err := r.collection.InsertOne(ctx, toDocumentMeeting(meeting))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrMeetingExists
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *MongoMeetingRepository) GetByID(ctx context.Context, id string) (*domain.Meeting, error) {
	const op = "repository.mongo.meeting.get"

	var doc model.MeetingDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return fromDocumentMeeting(&doc), nil
}

func (r *MongoMeetingRepository) Update(ctx context.Context, meeting *domain.Meeting) error {
	const op = "repository.mongo.meeting.update"
	if meeting == nil {
		return errors.New("meeting is nil")
	}

	doc := toDocumentMeeting(meeting)
	set := bson.M{
		"name":   doc.Name,
		"hostId": doc.HostID,
		"status": doc.Status,
	}
	update := bson.M{"$set": set}
	if doc.EndedAt == nil {
		update["$unset"] = bson.M{"endedAt": ""}
	} else {
		set["endedAt"] = doc.EndedAt
	}

	res, err := r.collection.UpdateByID(ctx, doc.ID, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return ErrMeetingNotFound
	}
	return nil
}

func (r *MongoMeetingRepository) List(ctx context.Context) ([]*domain.Meeting, error) {
	const op = "repository.mongo.meeting.list"

	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var docs []model.MeetingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*domain.Meeting, 0, len(docs))
	for i := range docs {
		result = append(result, fromDocumentMeeting(&docs[i]))
	}
	return result, nil
}

func toDocumentMeeting(meeting *domain.Meeting) *model.MeetingDocument {
	var endedAt *time.Time
	if !meeting.EndedAt.IsZero() {
		t := meeting.EndedAt.UTC()
		endedAt = &t
	}

	status := meeting.Status
	if status == "" {
		status = domain.MeetingStatusActive
	}

	return &model.MeetingDocument{
		ID:        meeting.ID,
		Name:      meeting.Name,
		HostID:    meeting.HostID,
		Status:    string(status),
		CreatedAt: meeting.CreatedAt.UTC(),
		EndedAt:   endedAt,
	}
}

func fromDocumentMeeting(doc *model.MeetingDocument) *domain.Meeting {
	var endedAt time.Time
	if doc.EndedAt != nil {
		endedAt = doc.EndedAt.UTC()
	}

	return &domain.Meeting{
		ID:        doc.ID,
		Name:      doc.Name,
		HostID:    doc.HostID,
		Status:    domain.MeetingStatus(doc.Status),
		CreatedAt: doc.CreatedAt.UTC(),
		EndedAt:   endedAt,
	}
}
