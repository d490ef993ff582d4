package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appadvice "github.com/bryanwahyu/imagegate/internal/application/advice"
	appgate "github.com/bryanwahyu/imagegate/internal/application/gate"
	domadvice "github.com/bryanwahyu/imagegate/internal/domain/advice"
	"github.com/bryanwahyu/imagegate/internal/domain/pipeline"
	"github.com/bryanwahyu/imagegate/internal/domain/policy"
	"github.com/bryanwahyu/imagegate/internal/middleware"
)

type Router struct {
	gateSvc   *appgate.Service
	adviceSvc *appadvice.Service
	rules     policy.RuleSet
}

func NewRouter(gateSvc *appgate.Service, adviceSvc *appadvice.Service, rules policy.RuleSet) http.Handler {
	r := &Router{gateSvc: gateSvc, adviceSvc: adviceSvc, rules: rules}
	mux := chi.NewRouter()

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(tenantGuard)
		rt.Post("/gate/run", r.wrap(r.handleRun))
		rt.Get("/runs/latest", r.wrap(r.handleLatest))
		rt.Get("/runs/{id}", r.wrap(r.handleGet))
		rt.Get("/runs/{id}/events", r.wrap(r.handleEvents))
		rt.Get("/summary", r.wrap(r.handleSummary))
		rt.Post("/ai/advise", r.wrap(r.handleAdvise))
		rt.Get("/ai/advise", r.wrap(r.handleAdviseList))
	})

	return mux
}

// tenantGuard rejects requests whose authenticated tenant does not own the
// {tenant} path they are addressing. Without API keys configured no tenant is
// resolved and the guard stays open.
func tenantGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		authed := middleware.GetTenantFromContext(req.Context())
		if authed != "" && authed != chi.URLParam(req, "tenant") {
			http.Error(w, "forbidden: key is not valid for this tenant", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, req)
	})
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			if errors.Is(err, domadvice.ErrQuotaExceeded) {
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// POST /v1/{tenant}/gate/run
// Starts a full build -> scan -> evaluate -> publish pipeline in the
// background and returns immediately with the queued run.
func (r *Router) handleRun(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		ContextPath string `json:"context_path"`
		Tag         string `json:"tag"`
		Destination string `json:"destination"`
		Source      string `json:"source"`
		CommitSHA   string `json:"commit_sha"`
		Branch      string `json:"branch"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	if err := middleware.ValidateContextPath(body.ContextPath); err != nil {
		return err
	}
	if err := middleware.ValidateImageRef(body.Tag); err != nil {
		return err
	}
	if body.Destination != "" {
		if err := middleware.ValidateImageRef(body.Destination); err != nil {
			return err
		}
	}

	cmd := appgate.RunCommand{
		TenantID:    tenant,
		ContextPath: body.ContextPath,
		Tag:         body.Tag,
		Destination: body.Destination,
		Policy:      r.rules,
		Source:      body.Source,
		CommitSHA:   body.CommitSHA,
		Branch:      body.Branch,
	}

	// run in the background so the pipeline survives the request lifetime
	go func() {
		middleware.IncrementRuns()
		middleware.IncrementRunsRunning()
		defer middleware.DecrementRunsRunning()

		result, err := r.gateSvc.RunUntilDone(cmd)
		if err != nil {
			middleware.IncrementRunsErrored()
			log.Printf("background gate run error: tenant=%s tag=%s err=%v", tenant, cmd.Tag, err)
			return
		}
		if result.Verdict.Pass {
			middleware.IncrementRunsPassed()
			log.Printf("gate run passed: tenant=%s tag=%s digest=%s", tenant, cmd.Tag, result.Run.Digest)
		} else {
			middleware.IncrementRunsBlocked()
			log.Printf("gate run blocked by policy: tenant=%s tag=%s reasons=%d", tenant, cmd.Tag, len(result.Verdict.Reasons))
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"status":  "queued",
		"tenant":  tenant,
		"tag":     body.Tag,
		"branch":  body.Branch,
		"commit":  body.CommitSHA,
		"message": "gate pipeline started in background",
	})
}

// GET /v1/{tenant}/runs/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.gateSvc.Latest(req.Context(), tenant, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/runs/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	run, err := r.gateSvc.Get(req.Context(), tenant, pipeline.RunID(id))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(run)
}

// GET /v1/{tenant}/runs/{id}/events?limit=20
func (r *Router) handleEvents(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.gateSvc.RunEvents(req.Context(), tenant, id, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))

	summary, err := r.gateSvc.Summary(req.Context(), tenant, middleware.ValidateDays(days))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(summary)
}

// POST /v1/{tenant}/ai/advise
// Body: {"run_id": "<id>"}
// Fetches the run's stored outcome and asks the AI provider for remediation advice.
func (r *Router) handleAdvise(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if r.adviceSvc == nil {
		return fmt.Errorf("ai advice is not configured")
	}
	var body struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	if err := middleware.ValidateRunID(body.RunID); err != nil {
		return err
	}

	run, err := r.gateSvc.Get(req.Context(), tenant, pipeline.RunID(body.RunID))
	if err != nil {
		return err
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}
	a, err := r.adviceSvc.AdviseAndStore(req.Context(), tenant, string(run.ID), run.Digest, string(payload))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(a)
}

// GET /v1/{tenant}/ai/advise?page=&page_size=
func (r *Router) handleAdviseList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if r.adviceSvc == nil {
		return fmt.Errorf("ai advice is not configured")
	}
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.adviceSvc.List(req.Context(), tenant, page, size)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}
