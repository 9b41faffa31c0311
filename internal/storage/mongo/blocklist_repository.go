package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/aidesbz/shortlink/internal/infrastructure/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BlocklistRepository stores block entries keyed by the ip field value. The
// field is the one canonical lookup path; document ids are never used for
// addressing.
type BlocklistRepository struct {
	coll *mongo.Collection
}

type blockDoc struct {
	IP        string    `bson:"ip"`
	Blocked   bool      `bson:"blocked"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func NewBlocklistRepository(m *db.Mongo) (*BlocklistRepository, error) {
	repo := &BlocklistRepository{coll: m.Collection("blockedIps")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ip", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_ip"),
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

// IsBlocked reports whether ip has an entry with blocked=true. An absent
// entry means never evaluated.
func (r *BlocklistRepository) IsBlocked(ctx context.Context, ip string) (bool, error) {
	var doc blockDoc
	err := r.coll.FindOne(ctx, bson.M{"ip": ip}).Decode(&doc)
	if err == nil {
		return doc.Blocked, nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}

	return false, err
}

// Block upserts the entry for ip. Concurrent auto-blocks for the same ip are
// idempotent.
func (r *BlocklistRepository) Block(ctx context.Context, ip string) error {
	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"ip": ip},
		bson.M{"$set": bson.M{
			"ip":        ip,
			"blocked":   true,
			"updatedAt": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Unblock deletes the entry outright; deletion unblocks unconditionally.
func (r *BlocklistRepository) Unblock(ctx context.Context, ip string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"ip": ip})
	return err
}
