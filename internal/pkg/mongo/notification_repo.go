package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const notificationCollection = "notifications"

type NotificationRepo interface {
	Insert(ctx context.Context, notice *NotificationModel) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*NotificationModel, error)
	GetNotificationList(ctx context.Context, receiverID uint64, limit, offset int64) ([]*NotificationModel, error)
	GetUnreadCount(ctx context.Context, receiverID uint64) (int64, error)
	MarkAsRead(ctx context.Context, receiverID uint64, id primitive.ObjectID) error
	MarkAllAsRead(ctx context.Context, receiverID uint64) error
}

type notificationRepoImpl struct {
	coll *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) NotificationRepo {
	return &notificationRepoImpl{coll: db.Collection(notificationCollection)}
}

func (s *notificationRepoImpl) Insert(ctx context.Context, notice *NotificationModel) error {
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now()
	}
	_, err := s.coll.InsertOne(ctx, notice)
	return err
}

func (s *notificationRepoImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*NotificationModel, error) {
	var notice NotificationModel
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&notice)
	if err != nil {
		return nil, err
	}
	return &notice, nil
}

// GetNotificationList 按时间倒序分页拉取通知
func (s *notificationRepoImpl) GetNotificationList(ctx context.Context, receiverID uint64, limit, offset int64) ([]*NotificationModel, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, bson.M{"receiver_id": receiverID}, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var list []*NotificationModel
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *notificationRepoImpl) GetUnreadCount(ctx context.Context, receiverID uint64) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"receiver_id": receiverID, "is_read": false})
}

func (s *notificationRepoImpl) MarkAsRead(ctx context.Context, receiverID uint64, id primitive.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "receiver_id": receiverID},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *notificationRepoImpl) MarkAllAsRead(ctx context.Context, receiverID uint64) error {
	_, err := s.coll.UpdateMany(ctx,
		bson.M{"receiver_id": receiverID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	return err
}
