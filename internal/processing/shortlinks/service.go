package shortlinks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aidesbz/shortlink/internal/events"
	"github.com/aidesbz/shortlink/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrEmptyURL = errors.New("empty url")

type Service struct {
	linkRepo   LinkRepository
	blockRepo  BlockRepository
	coder      Coder
	publisher  ClickPublisher
	baseURL    string
	codeLength int
	now        func() time.Time
}

func NewService(linkRepo LinkRepository, blockRepo BlockRepository, coder Coder, publisher ClickPublisher, baseURL string, codeLength int) *Service {
	if codeLength <= 0 {
		codeLength = 5
	}

	return &Service{
		linkRepo:   linkRepo,
		blockRepo:  blockRepo,
		coder:      coder,
		publisher:  publisher,
		baseURL:    strings.TrimRight(baseURL, "/"),
		codeLength: codeLength,
		now:        time.Now,
	}
}

// CreateLink mints a code and persists a new link record. Code collisions are
// retried a bounded number of times; the caller never sees a half-created
// record.
func (s *Service) CreateLink(ctx context.Context, in CreateLinkInput) (*Link, error) {
	rawURL := strings.TrimSpace(in.URL)
	if rawURL == "" {
		return nil, ErrEmptyURL
	}

	link := &Link{
		URL:       rawURL,
		Phone:     strings.TrimSpace(in.Phone),
		Campaign:  strings.TrimSpace(in.Campaign),
		Clicks:    0,
		CreatedAt: s.now().UTC(),
	}

	const maxAttempts = 10
	for range maxAttempts {
		code, err := s.coder.Generate(s.codeLength)
		if err != nil {
			return nil, err
		}
		link.Code = code
		link.Short = s.baseURL + "/" + code

		if err := s.linkRepo.Insert(ctx, link); err != nil {
			if errors.Is(err, ErrCodeTaken) {
				continue
			}
			return nil, err
		}

		return link, nil
	}

	return nil, ErrCodeTaken
}

// Resolve looks up a code on behalf of the client at ip. A genuine miss
// auto-blocks the ip before reporting ErrNotFound; a store failure does not.
func (s *Service) Resolve(ctx context.Context, code, ip string) (*Link, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}

	blocked, err := s.blockRepo.IsBlocked(ctx, ip)
	if err != nil {
		// The gate already made the fail-open/fail-closed call; this re-check
		// stays available-biased.
		logger.Warn("block list re-check failed", zap.Error(err), zap.String("ip", ip))
	} else if blocked {
		return nil, ErrBlocked
	}

	link, err := s.linkRepo.FindByCode(ctx, code)
	if err == nil {
		return link, nil
	}

	if errors.Is(err, ErrNotFound) {
		if blockErr := s.blockRepo.Block(ctx, ip); blockErr != nil {
			logger.Error("failed to auto-block ip", zap.Error(blockErr), zap.String("ip", ip))
		} else {
			logger.Info("ip auto-blocked after unknown code probe",
				zap.String("ip", ip), zap.String("code", code))
		}
		return nil, ErrNotFound
	}

	return nil, err
}

// RecordClick applies the atomic counter increment for a resolved link and
// fans a ClickRecorded event out to the publisher, if one is configured.
func (s *Service) RecordClick(ctx context.Context, link *Link) error {
	if link == nil || strings.TrimSpace(link.Code) == "" {
		return nil
	}

	if err := s.linkRepo.IncClicks(ctx, link.Code); err != nil {
		return err
	}

	if s.publisher != nil {
		event := events.ClickRecorded{
			EventID:    uuid.New().String(),
			Code:       link.Code,
			Campaign:   link.Campaign,
			OccurredAt: s.now().UTC().Format(time.RFC3339),
		}
		if err := s.publisher.PublishClick(ctx, event); err != nil {
			logger.Warn("failed to publish click event", zap.Error(err), zap.String("code", link.Code))
		}
	}

	return nil
}

// CampaignClicks sums clicks over every link tagged with campaign. Exact,
// case-sensitive match; campaigns with no links sum to zero.
func (s *Service) CampaignClicks(ctx context.Context, campaign string) (CampaignStats, error) {
	total, err := s.linkRepo.SumClicksByCampaign(ctx, campaign)
	if err != nil {
		return CampaignStats{}, err
	}

	return CampaignStats{Campaign: campaign, Clicks: total}, nil
}

// UnblockIP removes any block entry for ip, blocked or not.
func (s *Service) UnblockIP(ctx context.Context, ip string) error {
	return s.blockRepo.Unblock(ctx, strings.TrimSpace(ip))
}

// PurgeOlderThan deletes every link created strictly before cutoff as one
// batch and returns the number of records removed.
func (s *Service) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	codes, err := s.linkRepo.FindCreatedBefore(ctx, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	if len(codes) == 0 {
		return 0, nil
	}

	deleted, err := s.linkRepo.DeleteByCodes(ctx, codes)
	if err != nil {
		return 0, err
	}

	return deleted, nil
}
