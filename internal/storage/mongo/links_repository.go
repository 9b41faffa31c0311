package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/aidesbz/shortlink/internal/infrastructure/db"
	"github.com/aidesbz/shortlink/internal/processing/shortlinks"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LinksRepository struct {
	coll *mongo.Collection
}

type linkDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Code      string             `bson:"code"`
	URL       string             `bson:"url"`
	Short     string             `bson:"short"`
	Phone     string             `bson:"phone,omitempty"`
	Campaign  string             `bson:"campaign,omitempty"`
	Clicks    int64              `bson:"clicks"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func NewLinksRepository(m *db.Mongo) (*LinksRepository, error) {
	repo := &LinksRepository{coll: m.Collection("urls")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_code"),
		},
		{
			Keys:    bson.D{{Key: "campaign", Value: 1}},
			Options: options.Index().SetName("campaign_asc"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *LinksRepository) Insert(ctx context.Context, link *shortlinks.Link) error {
	doc := linkDoc{
		Code:      link.Code,
		URL:       link.URL,
		Short:     link.Short,
		Phone:     link.Phone,
		Campaign:  link.Campaign,
		Clicks:    link.Clicks,
		CreatedAt: link.CreatedAt.UTC(),
	}

	_, err := r.coll.InsertOne(ctx, doc)
	if err == nil {
		return nil
	}

	if mongo.IsDuplicateKeyError(err) {
		return shortlinks.ErrCodeTaken
	}

	return err
}

func (r *LinksRepository) FindByCode(ctx context.Context, code string) (*shortlinks.Link, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, shortlinks.ErrNotFound
	}

	return nil, err
}

// IncClicks applies the single atomic increment path for a link's counter.
func (r *LinksRepository) IncClicks(ctx context.Context, code string) error {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"code": code},
		bson.M{"$inc": bson.M{"clicks": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return shortlinks.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) SumClicksByCampaign(ctx context.Context, campaign string) (int64, error) {
	// $sum treats documents without a clicks field as zero.
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"campaign": campaign}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"clicks": bson.M{"$sum": "$clicks"},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var result struct {
		Clicks int64 `bson:"clicks"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&result); err != nil {
			return 0, err
		}
	}
	if err := cur.Err(); err != nil {
		return 0, err
	}

	return result.Clicks, nil
}

func (r *LinksRepository) FindCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	cur, err := r.coll.Find(
		ctx,
		bson.M{"createdAt": bson.M{"$lt": cutoff.UTC()}},
		options.Find().SetProjection(bson.M{"code": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var codes []string
	for cur.Next(ctx) {
		var doc struct {
			Code string `bson:"code"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		codes = append(codes, doc.Code)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	return codes, nil
}

// DeleteByCodes removes the batch in a single command so the retention job
// never observes a half-applied delete.
func (r *LinksRepository) DeleteByCodes(ctx context.Context, codes []string) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}

	res, err := r.coll.DeleteMany(ctx, bson.M{"code": bson.M{"$in": codes}})
	if err != nil {
		return 0, err
	}

	return res.DeletedCount, nil
}

func mapLinkDoc(doc linkDoc) *shortlinks.Link {
	return &shortlinks.Link{
		Code:      doc.Code,
		URL:       doc.URL,
		Short:     doc.Short,
		Phone:     doc.Phone,
		Campaign:  doc.Campaign,
		Clicks:    doc.Clicks,
		CreatedAt: doc.CreatedAt,
	}
}
