package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aidesbz/shortlink/internal/config"
	"github.com/aidesbz/shortlink/internal/constants"
	"github.com/aidesbz/shortlink/internal/infrastructure/logger"
	appvalidation "github.com/aidesbz/shortlink/internal/infrastructure/validation"
	"github.com/aidesbz/shortlink/internal/processing/shortlinks"
	"github.com/aidesbz/shortlink/internal/transport/http/middleware"
	"github.com/aidesbz/shortlink/pkg/httputils"
	"go.uber.org/zap"
)

type LinksHandler struct {
	cfg *config.Config
	svc *shortlinks.Service

	asyncClick   bool
	clickTimeout time.Duration
}

type LinksHandlerOptions struct {
	AsyncClick   bool
	ClickTimeout time.Duration
}

func NewLinksHandler(cfg *config.Config, svc *shortlinks.Service) *LinksHandler {
	return NewLinksHandlerWithOptions(cfg, svc, LinksHandlerOptions{
		AsyncClick:   true,
		ClickTimeout: 2 * time.Second,
	})
}

func NewLinksHandlerWithOptions(cfg *config.Config, svc *shortlinks.Service, opts LinksHandlerOptions) *LinksHandler {
	if opts.ClickTimeout <= 0 {
		opts.ClickTimeout = 2 * time.Second
	}

	return &LinksHandler{
		cfg:          cfg,
		svc:          svc,
		asyncClick:   opts.AsyncClick,
		clickTimeout: opts.ClickTimeout,
	}
}

// Redirect resolves a short code and issues the redirect. The click increment
// is dispatched after the response is committed; a genuine miss has already
// auto-blocked the caller inside Resolve.
func (h *LinksHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	ip := middleware.ClientIP(r)

	link, err := h.svc.Resolve(r.Context(), code, ip)
	if err != nil {
		switch {
		case errors.Is(err, shortlinks.ErrBlocked):
			http.Error(w, constants.MsgIPBlocked, http.StatusForbidden)
		case errors.Is(err, shortlinks.ErrNotFound):
			middleware.CountAutoBlock()
			http.Error(w, constants.MsgLinkNotFound, http.StatusNotFound)
		default:
			logger.Error("failed to resolve code", zap.Error(err), zap.String("code", code))
			http.Error(w, constants.MsgInternalError, http.StatusInternalServerError)
		}
		return
	}

	http.Redirect(w, r, link.URL, h.cfg.Shortener.RedirectStatus)

	if h.asyncClick {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), h.clickTimeout)
			defer cancel()
			if err := h.svc.RecordClick(ctx, link); err != nil {
				logger.Warn("failed to record click", zap.Error(err), zap.String("code", link.Code))
			}
		}()
	} else {
		if err := h.svc.RecordClick(r.Context(), link); err != nil {
			logger.Warn("failed to record click", zap.Error(err), zap.String("code", link.Code))
		}
	}
}

type unblockRequest struct {
	IPToUnblock string `json:"ipToUnblock" validate:"required,ip"`
}

// Unblock removes a block entry unconditionally.
func (h *LinksHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	var req unblockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidIP)
		return
	}

	if err := h.svc.UnblockIP(r.Context(), req.IPToUnblock); err != nil {
		logger.Error("failed to unblock ip", zap.Error(err), zap.String("ip", req.IPToUnblock))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessIPUnblocked, "IP has been successfully unblocked.", nil)
}

// Campaign sums clicks over every link tagged with the campaign id, which may
// itself contain slashes. The response shape is pinned for existing callers.
func (h *LinksHandler) Campaign(w http.ResponseWriter, r *http.Request) {
	campaign := r.PathValue("campaign")

	stats, err := h.svc.CampaignClicks(r.Context(), campaign)
	if err != nil {
		logger.Error("failed to aggregate campaign", zap.Error(err), zap.String("campaign", campaign))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	httputils.RespondJSON(w, http.StatusOK, stats)
}

// DeleteOld purges every link created before the configured retention cutoff.
func (h *LinksHandler) DeleteOld(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.PurgeOlderThan(r.Context(), h.cfg.Retention.Cutoff)
	if err != nil {
		logger.Error("failed to delete old links", zap.Error(err))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	if deleted == 0 {
		httputils.WriteAPISuccess(w, r, constants.SuccessNoOldLinks, constants.MsgNoOldLinks, nil)
		return
	}

	logger.Info("old links deleted",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", h.cfg.Retention.Cutoff),
	)
	httputils.WriteAPISuccess(w, r, constants.SuccessLinksPurged, constants.MsgLinksPurged, map[string]int64{
		"deleted": deleted,
	})
}
