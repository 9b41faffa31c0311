package shortlinks

import (
	"context"
	"errors"
	"time"

	"github.com/aidesbz/shortlink/internal/events"
)

var (
	ErrNotFound  = errors.New("link not found")
	ErrBlocked   = errors.New("ip blocked")
	ErrCodeTaken = errors.New("code taken")
)

type LinkRepository interface {
	Insert(ctx context.Context, link *Link) error
	FindByCode(ctx context.Context, code string) (*Link, error)
	IncClicks(ctx context.Context, code string) error
	SumClicksByCampaign(ctx context.Context, campaign string) (int64, error)
	FindCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	DeleteByCodes(ctx context.Context, codes []string) (int64, error)
}

type BlockRepository interface {
	IsBlocked(ctx context.Context, ip string) (bool, error)
	Block(ctx context.Context, ip string) error
	Unblock(ctx context.Context, ip string) error
}

type Coder interface {
	Generate(length int) (string, error)
}

// ClickPublisher fans click events out to interested consumers. A nil
// publisher disables fan-out; publish failures never reach the redirect path.
type ClickPublisher interface {
	PublishClick(ctx context.Context, event events.ClickRecorded) error
}
