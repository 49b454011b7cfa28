package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/odontocare/clinic-api/internal/appointment"
	"github.com/odontocare/clinic-api/internal/auth"
	"github.com/odontocare/clinic-api/internal/billing"
	"github.com/odontocare/clinic-api/internal/bot"
	"github.com/odontocare/clinic-api/internal/identity"
	"github.com/odontocare/clinic-api/internal/inventory"
	"github.com/odontocare/clinic-api/internal/patient"
)

type RouterConfig struct {
	Patients     *patient.Service
	Appointments *appointment.Service
	Billing      *billing.Service
	Inventory    *inventory.Service
	Identity     *identity.Service
	Bot          *bot.Bot
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	JWTSecret    string
	Env          string
	Version      string
	Log          zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/auth/login", loginHandler(cfg.Identity))

	// Everything below requires a valid token.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Route("/patients", func(r chi.Router) {
			r.With(RequirePermission(auth.PermPatientsRead)).Get("/", listPatientsHandler(cfg.Patients))
			r.With(RequirePermission(auth.PermPatientsWrite)).Post("/", createPatientHandler(cfg.Patients))
			r.With(RequirePermission(auth.PermPatientsRead)).Get("/{id}", getPatientHandler(cfg.Patients))
			r.With(RequirePermission(auth.PermPatientsWrite)).Put("/{id}", updatePatientHandler(cfg.Patients))
			r.With(RequirePermission(auth.PermPatientsWrite)).Delete("/{id}", deactivatePatientHandler(cfg.Patients))
			r.With(RequirePermission(auth.PermPatientsWrite)).Post("/{id}/reactivate", reactivatePatientHandler(cfg.Patients))
			r.With(RequirePermission(auth.PermPatientsRead)).Get("/code/{code}", getPatientByCodeHandler(cfg.Patients))

			r.With(RequirePermission(auth.PermPatientsRead)).Get("/{id}/odontogram", getOdontogramHandler(cfg.Patients))
			r.With(RequirePermission(auth.PermOdontogramWrite)).Post("/{id}/odontogram", recordToothConditionHandler(cfg.Patients))
			r.With(RequirePermission(auth.PermPatientsRead)).Get("/{id}/odontogram/{tooth}", getToothHistoryHandler(cfg.Patients))

			r.With(RequirePermission(auth.PermAppointmentsRead)).Get("/{id}/appointments", listPatientAppointmentsHandler(cfg.Appointments))
			r.With(RequirePermission(auth.PermBillingRead)).Get("/{id}/invoices", listPatientInvoicesHandler(cfg.Billing))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.With(RequirePermission(auth.PermAppointmentsWrite)).Post("/", bookAppointmentHandler(cfg.Appointments))
			r.With(RequirePermission(auth.PermAppointmentsRead)).Get("/{id}", getAppointmentHandler(cfg.Appointments))
			r.With(RequirePermission(auth.PermAppointmentsWrite)).Post("/{id}/confirm", confirmAppointmentHandler(cfg.Appointments))
			r.With(RequirePermission(auth.PermAppointmentsWrite)).Post("/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
			r.With(RequirePermission(auth.PermAppointmentsWrite)).Post("/{id}/complete", completeAppointmentHandler(cfg.Appointments))
			r.With(RequirePermission(auth.PermAppointmentsWrite)).Post("/{id}/reschedule", rescheduleAppointmentHandler(cfg.Appointments))
			r.With(RequirePermission(auth.PermInventoryWrite)).Post("/{id}/supplies", consumeForTreatmentHandler(cfg.Inventory))
		})

		r.With(RequirePermission(auth.PermAppointmentsRead)).
			Get("/practitioners/{id}/appointments", listPractitionerDayHandler(cfg.Appointments))
		r.With(RequirePermission(auth.PermAppointmentsRead)).
			Get("/practitioners/{id}/availability", checkAvailabilityHandler(cfg.Appointments))

		r.Route("/invoices", func(r chi.Router) {
			r.With(RequirePermission(auth.PermBillingWrite)).Post("/", createInvoiceHandler(cfg.Billing))
			r.With(RequirePermission(auth.PermBillingRead)).Get("/{id}", getInvoiceHandler(cfg.Billing))
			r.With(RequirePermission(auth.PermBillingCollect)).Post("/{id}/payments", registerPaymentHandler(cfg.Billing))
			r.With(RequirePermission(auth.PermBillingRead)).Get("/{id}/payments", listInvoicePaymentsHandler(cfg.Billing))
			r.With(RequirePermission(auth.PermBillingWrite)).Post("/{id}/cancel", cancelInvoiceHandler(cfg.Billing))
		})

		r.Route("/supplies", func(r chi.Router) {
			r.With(RequirePermission(auth.PermInventoryRead)).Get("/", listSuppliesHandler(cfg.Inventory))
			r.With(RequirePermission(auth.PermInventoryWrite)).Post("/", createSupplyHandler(cfg.Inventory))
			r.With(RequirePermission(auth.PermInventoryRead)).Get("/low-stock", listLowStockHandler(cfg.Inventory))
			r.With(RequirePermission(auth.PermInventoryRead)).Get("/code/{code}", getSupplyByCodeHandler(cfg.Inventory))
			r.With(RequirePermission(auth.PermInventoryRead)).Get("/{id}", getSupplyHandler(cfg.Inventory))
			r.With(RequirePermission(auth.PermInventoryWrite)).Post("/{id}/movements", applyMovementHandler(cfg.Inventory))
			r.With(RequirePermission(auth.PermInventoryRead)).Get("/{id}/movements", listMovementsHandler(cfg.Inventory))
		})

		r.Post("/bot/ask", botAskHandler(cfg.Bot))

		r.Route("/users", func(r chi.Router) {
			r.With(RequirePermission(auth.PermUsersManage)).Get("/", listUsersHandler(cfg.Identity))
			r.With(RequirePermission(auth.PermUsersManage)).Post("/", createUserHandler(cfg.Identity))
			r.With(RequirePermission(auth.PermUsersManage)).Post("/{id}/deactivate", deactivateUserHandler(cfg.Identity))
		})
	})

	return r
}
