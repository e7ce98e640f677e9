package v1

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"remit-scout/config"
	"remit-scout/quotes/types"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// APIPathPrefix defines the v1 API path prefix.
const APIPathPrefix = "/api"

type (
	// Router defines a router wrapper used for registering v1 API routes.
	Router struct {
		logger     zerolog.Logger
		cfg        config.Config
		aggregator Aggregator
		limiter    *rate.Limiter
	}

	errorBody struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details,omitempty"`
	}

	errorResponse struct {
		Success bool      `json:"success"`
		Error   errorBody `json:"error"`
	}

	healthZResponse struct {
		Status    string `json:"status"`
		Providers int    `json:"providers"`
	}

	providerListResponse struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}
)

func New(logger zerolog.Logger, cfg config.Config, aggregator Aggregator) *Router {
	var limiter *rate.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
	}
	return &Router{
		logger:     logger.With().Str("module", "router").Logger(),
		cfg:        cfg,
		aggregator: aggregator,
		limiter:    limiter,
	}
}

// RegisterRoutes register v1 API routes on the provided sub-router.
func (r *Router) RegisterRoutes(rtr *mux.Router, prefix string) {
	v1Router := rtr.PathPrefix(prefix).Subrouter()

	mChain := alice.New(r.rateLimitMiddleware)

	corsOpts := cors.Options{
		AllowedOrigins: r.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
		Debug:          r.cfg.Server.VerboseCORS,
	}

	v1Router.Handle(
		"/healthz",
		cors.New(corsOpts).Handler(mChain.Then(r.healthzHandler())),
	).Methods(http.MethodGet)

	v1Router.Handle(
		"/quotes/",
		cors.New(corsOpts).Handler(mChain.Then(r.quotesHandler())),
	).Methods(http.MethodGet)

	v1Router.Handle(
		"/providers/",
		cors.New(corsOpts).Handler(mChain.Then(r.providersHandler())),
	).Methods(http.MethodGet)

	v1Router.Handle(
		"/providers/{id}/",
		cors.New(corsOpts).Handler(mChain.Then(r.providerDetailHandler())),
	).Methods(http.MethodGet)
}

func (r *Router) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.limiter != nil && !r.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error: errorBody{
					Code:    types.ErrRateLimit.String(),
					Message: "too many requests",
				},
			})
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, healthZResponse{
			Status:    "available",
			Providers: r.aggregator.Registry().Len(),
		})
	}
}

func (r *Router) quotesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		quoteReq, err := parseQuoteRequest(req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: errorBody{
					Code:    types.ErrInvalidParameter.String(),
					Message: "invalid quote request",
					Details: err.Error(),
				},
			})
			return
		}

		result := r.aggregator.GetAllQuotes(req.Context(), quoteReq)
		if !result.Success {
			if reqErr, ok := result.Errors["request"]; ok && reqErr.ErrorKind == types.ErrInvalidParameter {
				writeJSON(w, http.StatusBadRequest, errorResponse{
					Error: errorBody{
						Code:    reqErr.ErrorKind.String(),
						Message: "invalid quote request",
						Details: reqErr.ErrorMessage,
					},
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (r *Router) providersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		infos := r.aggregator.Registry().Providers()
		list := make([]providerListResponse, 0, len(infos))
		for _, info := range infos {
			list = append(list, providerListResponse{
				ID:          info.ID,
				DisplayName: info.DisplayName,
			})
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (r *Router) providerDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		for _, info := range r.aggregator.Registry().Providers() {
			if info.ID == id {
				writeJSON(w, http.StatusOK, info)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error: errorBody{
				Code:    types.ErrInvalidParameter.String(),
				Message: "unknown provider",
				Details: id,
			},
		})
	}
}

// parseQuoteRequest maps the querystring onto a QuoteRequest. Semantic
// validation stays with the aggregator; this only rejects unparseable values.
func parseQuoteRequest(req *http.Request) (types.QuoteRequest, error) {
	q := req.URL.Query()

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		return types.QuoteRequest{}, err
	}

	quoteReq := types.QuoteRequest{
		SourceCountry:  q.Get("source_country"),
		DestCountry:    q.Get("dest_country"),
		SourceCurrency: q.Get("source_currency"),
		DestCurrency:   q.Get("dest_currency"),
		Amount:         amount,
		PaymentMethod:  q.Get("payment_method"),
		DeliveryMethod: q.Get("delivery_method"),
	}

	opts := types.QuoteOptions{
		SortBy:       types.SortBy(q.Get("sort_by")),
		ForceRefresh: q.Get("force_refresh") == "true" || q.Get("force_refresh") == "1",
	}
	if raw := q.Get("max_fee"); raw != "" {
		maxFee, err := decimal.NewFromString(raw)
		if err != nil {
			return types.QuoteRequest{}, err
		}
		opts.MaxFee = &maxFee
	}
	if raw := q.Get("max_delivery_time_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return types.QuoteRequest{}, err
		}
		opts.MaxDeliveryTimeMinutes = &minutes
	}
	if raw := q.Get("include_providers"); raw != "" {
		opts.IncludeProviders = splitList(raw)
	}
	if raw := q.Get("exclude_providers"); raw != "" {
		opts.ExcludeProviders = splitList(raw)
	}
	quoteReq.Options = opts
	return quoteReq, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
