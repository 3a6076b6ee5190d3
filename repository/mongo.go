package repository

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"latch-backend/models"
)

const driversCollection = "drivers"

var _ DriverRepository = (*MongoDriverRepository)(nil)

// driverDocument is the stored shape of a driver in the drivers collection.
type driverDocument struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	Name                 string             `bson:"name"`
	PhoneNumber          string             `bson:"phoneNumber"`
	SubscriptionStatus   string             `bson:"subscriptionStatus"`
	NextSubscriptionDate *time.Time         `bson:"nextSubscriptionDate"`
	CreatedAt            time.Time          `bson:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt"`
}

func (d driverDocument) toModel() models.Driver {
	driver := models.Driver{
		ID:                 d.ID.Hex(),
		Name:               d.Name,
		PhoneNumber:        d.PhoneNumber,
		SubscriptionStatus: models.SubscriptionStatus(d.SubscriptionStatus),
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if d.NextSubscriptionDate != nil {
		t := *d.NextSubscriptionDate
		driver.NextSubscriptionDate = &t
	}
	return driver
}

// MongoDriverRepository is the document-database driver store.
type MongoDriverRepository struct {
	coll *mongo.Collection
}

func NewMongoDriverRepository(db *mongo.Database) *MongoDriverRepository {
	return &MongoDriverRepository{coll: db.Collection(driversCollection)}
}

// EnsureIndexes creates the unique phone index and the createdAt sort index.
func (r *MongoDriverRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "phoneNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	})
	return errors.Wrap(err, "create driver indexes")
}

func (r *MongoDriverRepository) List(ctx context.Context) ([]models.Driver, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoDriverRepository) Search(ctx context.Context, query string) ([]models.Driver, error) {
	if query == "" {
		return r.List(ctx)
	}
	return r.find(ctx, searchFilter(query))
}

// searchFilter matches query literally: regex metacharacters are quoted.
func searchFilter(query string) bson.M {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"name": pattern},
		bson.M{"phoneNumber": pattern},
	}}
}

func (r *MongoDriverRepository) FindByID(ctx context.Context, id string) (*models.Driver, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc driverDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "find driver")
	}
	driver := doc.toModel()
	return &driver, nil
}

func (r *MongoDriverRepository) Create(ctx context.Context, driver *models.Driver) error {
	now := time.Now().UTC()
	doc := driverDocument{
		ID:                   primitive.NewObjectID(),
		Name:                 driver.Name,
		PhoneNumber:          driver.PhoneNumber,
		SubscriptionStatus:   string(driver.SubscriptionStatus),
		NextSubscriptionDate: driver.NextSubscriptionDate,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicatePhone
		}
		return errors.Wrap(err, "insert driver")
	}
	*driver = doc.toModel()
	return nil
}

func (r *MongoDriverRepository) Update(ctx context.Context, id string, update models.DriverUpdate) (*models.Driver, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.PhoneNumber != nil {
		set["phoneNumber"] = *update.PhoneNumber
	}
	if update.SubscriptionStatus != nil {
		set["subscriptionStatus"] = string(*update.SubscriptionStatus)
	}
	if update.ClearNextSubscriptionDate {
		set["nextSubscriptionDate"] = nil
	} else if update.NextSubscriptionDate != nil {
		set["nextSubscriptionDate"] = *update.NextSubscriptionDate
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc driverDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicatePhone
		}
		return nil, notFoundOr(err, "update driver")
	}
	driver := doc.toModel()
	return &driver, nil
}

func (r *MongoDriverRepository) Delete(ctx context.Context, id string) (*models.Driver, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc driverDocument
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "delete driver")
	}
	driver := doc.toModel()
	return &driver, nil
}

func (r *MongoDriverRepository) SetNextSubscriptionDate(ctx context.Context, id string, next time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"nextSubscriptionDate": next, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return errors.Wrap(err, "set next subscription date")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoDriverRepository) find(ctx context.Context, filter interface{}) ([]models.Driver, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find drivers")
	}
	defer cur.Close(ctx)

	var docs []driverDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode drivers")
	}
	drivers := make([]models.Driver, 0, len(docs))
	for _, doc := range docs {
		drivers = append(drivers, doc.toModel())
	}
	return drivers, nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return errors.Wrap(err, op)
}
