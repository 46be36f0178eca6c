package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chemtrack/labstock-backend/api/controllers"
	"github.com/chemtrack/labstock-backend/api/middleware"
	"github.com/chemtrack/labstock-backend/internal/catalog"
	"github.com/chemtrack/labstock-backend/internal/intake"
	"github.com/chemtrack/labstock-backend/internal/ledger"
	"github.com/chemtrack/labstock-backend/internal/requests"
	"github.com/chemtrack/labstock-backend/pkg/config"
	"github.com/chemtrack/labstock-backend/pkg/db"
	"github.com/chemtrack/labstock-backend/pkg/logger"
	"github.com/chemtrack/labstock-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	catalogService catalog.Service,
	ledgerService ledger.Service,
	requestsService requests.Service,
	intakeService intake.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/chemicals", func(r chi.Router) {
			r.Get("/", controllers.ListChemicals(catalogService, logg))
			r.Get("/available", controllers.SearchAvailableChemicals(catalogService, logg))
			r.Get("/{chemicalId}", controllers.GetChemical(catalogService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Put("/", controllers.UpsertChemical(catalogService, logg))
				r.Put("/{chemicalId}/threshold", controllers.SetChemicalThreshold(catalogService, logg))
				r.Delete("/{chemicalId}", controllers.DeleteChemical(catalogService, logg))
			})
		})

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", controllers.CreateRequest(requestsService, logg))
			r.Get("/", controllers.ListRequests(requestsService, logg))
			r.Get("/{requestId}", controllers.GetRequest(requestsService, logg))
			r.Post("/{requestId}/lines/{lineId}/allocate", controllers.AllocateRequestLine(requestsService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/{requestId}/decision", controllers.DecideRequest(requestsService, logg))
				r.Post("/{requestId}/complete", controllers.CompleteRequest(requestsService, logg))
			})
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/{location}/{chemicalId}", controllers.StockBalance(ledgerService, logg))
			r.Get("/{location}/{chemicalId}/transactions", controllers.StockTransactions(ledgerService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/{location}/{chemicalId}/reconcile", controllers.StockReconcile(ledgerService, logg))
				r.Post("/adjustments", controllers.AdjustStock(intakeService, logg))
			})
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.ListInvoices(intakeService, logg))
			r.Get("/{invoiceId}", controllers.GetInvoice(intakeService, logg))
			r.With(middleware.RequireAdmin(logg)).Post("/", controllers.ReceiveInvoice(intakeService, logg))
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", controllers.ListVendors(intakeService, logg))
			r.Get("/{vendorId}", controllers.GetVendor(intakeService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/", controllers.CreateVendor(intakeService, logg))
				r.Put("/{vendorId}", controllers.UpdateVendor(intakeService, logg))
			})
		})

		r.Route("/quotations", func(r chi.Router) {
			r.Get("/", controllers.ListQuotations(intakeService, logg))
			r.Get("/{quotationId}", controllers.GetQuotation(intakeService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/", controllers.CreateQuotation(intakeService, logg))
				r.Post("/{quotationId}/approve", controllers.ApproveQuotation(intakeService, logg))
				r.Post("/{quotationId}/convert", controllers.ConvertQuotation(intakeService, logg))
			})
		})
	})

	return r
}
