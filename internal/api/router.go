// Package api is the HTTP surface: signed transaction submission, read
// accessors, the journal and a live event stream.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/UkralStul/agora/internal/dataloader"
	"github.com/UkralStul/agora/internal/domain"
	"github.com/UkralStul/agora/internal/envelope"
	"github.com/UkralStul/agora/internal/events"
	"github.com/UkralStul/agora/internal/ledger"
	"github.com/UkralStul/agora/internal/storage"
)

// Ledger is everything the API reads from or submits to.
type Ledger interface {
	Submit(ctx context.Context, tx ledger.Tx) (ledger.Receipt, error)

	Profile(id domain.Identity) (domain.UserProfile, error)
	Profiles(ids []domain.Identity) map[domain.Identity]domain.UserProfile
	Post(id uint64) (domain.Post, error)
	PostsByAuthor(author domain.Identity) []uint64
	Comments(postID uint64) ([]domain.Comment, error)
	HasLiked(postID uint64, id domain.Identity) bool
	ModerationVote(postID uint64) (domain.ModerationVote, error)
	Proposal(id uint64) (domain.Proposal, error)
	HasVoted(proposalID uint64, id domain.Identity) bool
	HasRole(role domain.Role, id domain.Identity) bool
	Parameters() domain.Parameters
	Height() uint64
	Entries(ctx context.Context, args storage.PaginationArgs) ([]storage.Entry, error)
}

type Config struct {
	Ledger   Ledger
	Opener   *envelope.Opener
	Hub      *events.Hub
	Logger   *zap.Logger
	Gatherer prometheus.Gatherer
}

type Handler struct {
	ledger Ledger
	opener *envelope.Opener
	hub    *events.Hub
	log    *zap.Logger
}

// NewRouter mounts every route on a chi router.
func NewRouter(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	h := &Handler{
		ledger: cfg.Ledger,
		opener: cfg.Opener,
		hub:    cfg.Hub,
		log:    cfg.Logger.With(zap.String("module", "api")),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(h.logRequests)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", h.health)
	router.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	router.Get("/events", h.streamEvents)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))

		r.Post("/tx", h.submit)

		r.Get("/users/{identity}", h.getUser)
		r.Get("/users/{identity}/posts", h.getUserPosts)

		r.Route("/posts/{postID}", func(r chi.Router) {
			r.Get("/", h.getPost)
			r.With(func(next http.Handler) http.Handler {
				return dataloader.Middleware(h.ledger, next)
			}).Get("/comments", h.getComments)
			r.Get("/likes/{identity}", h.getLike)
			r.Get("/moderation", h.getModerationVote)
		})

		r.Get("/proposals/{proposalID}", h.getProposal)
		r.Get("/proposals/{proposalID}/votes/{identity}", h.getVote)
		r.Get("/roles/{role}/{identity}", h.getRole)
		r.Get("/parameters", h.getParameters)
		r.Get("/journal", h.getJournal)
	})

	return router
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
