package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"civicreporter-be/models"
)

const (
	reportsCollection = "reports"
	usersCollection   = "users"
	otpsCollection    = "otps"
)

// MongoStore implements Store on MongoDB.
type MongoStore struct {
	client  *mongo.Client
	reports *mongo.Collection
	users   *mongo.Collection
	otps    *mongo.Collection
}

// NewMongoStore wraps an already connected client and ensures indexes.
func NewMongoStore(ctx context.Context, client *mongo.Client, database string) (*MongoStore, error) {
	db := client.Database(database)
	s := &MongoStore{
		client:  client,
		reports: db.Collection(reportsCollection),
		users:   db.Collection(usersCollection),
		otps:    db.Collection(otpsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "mobile", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	_, err = s.reports.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create report indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) CreateReport(ctx context.Context, report *models.Report) error {
	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now
	if _, err := s.reports.InsertOne(ctx, report); err != nil {
		return fmt.Errorf("insert report: %w", translateMongo(err))
	}
	return nil
}

func (s *MongoStore) FindReportByID(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := s.reports.FindOne(ctx, bson.M{"_id": id}).Decode(&report); err != nil {
		return nil, fmt.Errorf("find report: %w", translateMongo(err))
	}
	return &report, nil
}

func (s *MongoStore) FindReports(ctx context.Context, filter ReportFilter) ([]models.Report, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}

	direction := -1
	if filter.OldestFirst {
		direction = 1
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: direction}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		findOptions.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		findOptions.SetSkip(int64(filter.Offset))
	}

	cursor, err := s.reports.Find(ctx, query, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := []models.Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	return reports, nil
}

func (s *MongoStore) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus) (*models.Report, error) {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var report models.Report
	if err := s.reports.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&report); err != nil {
		return nil, fmt.Errorf("update report status: %w", translateMongo(err))
	}
	return &report, nil
}

func (s *MongoStore) UpdateReportImage(ctx context.Context, id string, imageURL *string) error {
	var update bson.M
	if imageURL == nil {
		update = bson.M{
			"$unset": bson.M{"imageUrl": ""},
			"$set":   bson.M{"updatedAt": time.Now().UTC()},
		}
	} else {
		update = bson.M{"$set": bson.M{"imageUrl": *imageURL, "updatedAt": time.Now().UTC()}}
	}
	res, err := s.reports.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update report image: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update report image: %w", ErrNotFound)
	}
	return nil
}

func (s *MongoStore) DeleteReport(ctx context.Context, id string) error {
	res, err := s.reports.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete report: %w", ErrNotFound)
	}
	return nil
}

func (s *MongoStore) CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int64, error) {
	pipeline := []bson.M{
		{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}
	cursor, err := s.reports.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate report status: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.ReportStatus `bson:"_id"`
		Count  int64               `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode report status counts: %w", err)
	}
	counts := make(map[models.ReportStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("insert user: %w", translateMongo(err))
	}
	return nil
}

func (s *MongoStore) EnsureUser(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	onInsert := bson.M{
		"_id":       user.ID,
		"password":  user.Password,
		"name":      user.Name,
		"role":      user.Role,
		"createdAt": now,
		"updatedAt": now,
	}
	if user.Mobile != nil {
		onInsert["mobile"] = *user.Mobile
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored models.User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"email": user.Email}, bson.M{"$setOnInsert": onInsert}, opts).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert for the same email won the insert.
		return s.FindUserByEmail(ctx, user.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", translateMongo(err))
	}
	return &stored, nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) FindUserByMobile(ctx context.Context, mobile string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"mobile": mobile})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, fmt.Errorf("find user: %w", translateMongo(err))
	}
	return &user, nil
}

func (s *MongoStore) UpsertOTP(ctx context.Context, otp models.OTP) error {
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.otps.ReplaceOne(ctx, bson.M{"_id": otp.Mobile}, otp, opts); err != nil {
		return fmt.Errorf("upsert otp: %w", err)
	}
	return nil
}

func (s *MongoStore) FindOTP(ctx context.Context, mobile string) (*models.OTP, error) {
	var otp models.OTP
	if err := s.otps.FindOne(ctx, bson.M{"_id": mobile}).Decode(&otp); err != nil {
		return nil, fmt.Errorf("find otp: %w", translateMongo(err))
	}
	return &otp, nil
}

func (s *MongoStore) DeleteOTP(ctx context.Context, mobile string) error {
	res, err := s.otps.DeleteOne(ctx, bson.M{"_id": mobile})
	if err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete otp: %w", ErrNotFound)
	}
	return nil
}

func translateMongo(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}
