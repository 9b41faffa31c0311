package mongo

import (
	"context"
	"time"

	"github.com/aidesbz/shortlink/internal/infrastructure/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CampaignStatsRepository keeps per-campaign daily click rollups written by
// the click consumer. The urls.clicks counter stays the source of truth; these
// documents feed reporting dashboards.
type CampaignStatsRepository struct {
	coll *mongo.Collection
}

func NewCampaignStatsRepository(m *db.Mongo) (*CampaignStatsRepository, error) {
	repo := &CampaignStatsRepository{coll: m.Collection("clicks_daily")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "campaign", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_campaign_date"),
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *CampaignStatsRepository) IncDaily(ctx context.Context, campaign string, at time.Time) error {
	date := at.UTC().Format(time.DateOnly)

	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"campaign": campaign, "date": date},
		bson.M{
			"$inc": bson.M{"count": 1},
			"$setOnInsert": bson.M{
				"campaign": campaign,
				"date":     date,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}
