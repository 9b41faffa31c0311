package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/aidesbz/shortlink/internal/constants"
	"github.com/aidesbz/shortlink/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const gateTimeout = 2 * time.Second

// BlockChecker is the read-only lookup the gate needs from the block list.
type BlockChecker interface {
	IsBlocked(ctx context.Context, ip string) (bool, error)
}

// BlocklistGate rejects every request from an administratively blocked IP
// before any other handling. When the lookup itself fails the gate fails open
// unless failClosed is set; either way the outcome is logged.
func BlocklistGate(checker BlockChecker, failClosed bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			ctx, cancel := context.WithTimeout(r.Context(), gateTimeout)
			defer cancel()

			blocked, err := checker.IsBlocked(ctx, ip)
			if err != nil {
				logger.Warn("block list lookup failed", zap.Error(err), zap.String("ip", ip))
				if failClosed {
					http.Error(w, constants.MsgInternalError, http.StatusServiceUnavailable)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if blocked {
				http.Error(w, constants.MsgIPBlocked, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
