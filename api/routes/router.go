package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/divvyup/divvyup-backend/api/controllers"
	"github.com/divvyup/divvyup-backend/api/middleware"
	claimsdomain "github.com/divvyup/divvyup-backend/internal/claims"
	"github.com/divvyup/divvyup-backend/internal/members"
	"github.com/divvyup/divvyup-backend/internal/receipts"
	"github.com/divvyup/divvyup-backend/internal/rooms"
	"github.com/divvyup/divvyup-backend/pkg/config"
	"github.com/divvyup/divvyup-backend/pkg/db"
	"github.com/divvyup/divvyup-backend/pkg/logger"
	"github.com/divvyup/divvyup-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	receiptService receipts.Service,
	roomService rooms.Service,
	memberService members.Service,
	claimService claimsdomain.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	joinPolicy := middleware.NewJoinRateLimitPolicy(
		cfg.JoinRateLimit.Window,
		cfg.JoinRateLimit.IPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/receipts", func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.JWT, logg))
		r.Post("/", controllers.ReceiptCreate(receiptService, logg))
		r.Route("/{receiptId}", func(r chi.Router) {
			r.Get("/", controllers.ReceiptDetail(receiptService, logg))
			r.Patch("/", controllers.ReceiptUpdateTotals(receiptService, logg))
			r.Post("/items", controllers.ReceiptItemCreate(receiptService, logg))
			r.Patch("/items/{itemId}", controllers.ReceiptItemUpdate(receiptService, logg))
			r.Delete("/items/{itemId}", controllers.ReceiptItemDelete(receiptService, logg))
		})
	})

	r.Route("/api/v1/rooms", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.JWT, logg))
			r.Post("/", controllers.RoomCreate(roomService, logg))
			r.Get("/", controllers.RoomList(roomService, logg))
			r.Patch("/{roomId}", controllers.RoomUpdateSettings(roomService, logg))
		})

		// Link-shareable surface: anonymous guests participate here.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Get("/{roomId}", controllers.RoomDetail(roomService, logg))
			r.Get("/{roomId}/pulse", controllers.RoomPulse(roomService, logg))
			r.Get("/{roomId}/settlement", controllers.RoomSettlement(roomService, logg))
			r.Get("/{roomId}/membership", controllers.RoomMembership(memberService, logg))
			r.With(middleware.JoinRateLimit(joinPolicy, redisClient, logg)).
				Post("/{roomId}/join", controllers.RoomJoin(memberService, logg))
			r.Put("/{roomId}/claims/{itemId}", controllers.ClaimSet(claimService, memberService, logg))
		})
	})

	return r
}
