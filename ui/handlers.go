package ui

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gothresh/adapters/report"
	"gothresh/domain/core"
	"gothresh/domain/de"
	"gothresh/domain/threshold"
	"gothresh/internal/errors"
	"gothresh/internal/optimizer"
	"gothresh/internal/testkit"
)

// geneRow is the wire form of an input gene; null means missing
type geneRow struct {
	GeneID     string   `json:"gene_id"`
	EffectSize *float64 `json:"effect_size"`
	PValue     *float64 `json:"pvalue"`
}

// optimizeRequest carries the table inline, or requests demo data
type optimizeRequest struct {
	Goal            string                     `json:"goal"`
	Pi0Method       string                     `json:"pi0_method,omitempty"`
	PadjMethod      string                     `json:"padj_method,omitempty"`
	LogFCMethod     string                     `json:"logfc_method,omitempty"`
	PValueThreshold float64                    `json:"pvalue_threshold,omitempty"`
	Rows            []geneRow                  `json:"rows,omitempty"`
	Demo            *testkit.DEGeneratorConfig `json:"demo,omitempty"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	table, err := req.table()
	if err != nil {
		writeError(w, errors.InvalidInput(err.Error()))
		return
	}

	result, err := a.opt.Optimize(table, optimizer.Options{
		Goal:            req.Goal,
		Pi0Method:       req.Pi0Method,
		PadjMethod:      req.PadjMethod,
		LogFCMethod:     req.LogFCMethod,
		PValueThreshold: req.PValueThreshold,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	run := &threshold.Run{
		ID:        core.RunID(core.NewID()),
		Source:    "api",
		Result:    result,
		CreatedAt: core.Now(),
	}
	if a.repo != nil {
		if err := a.repo.Save(r.Context(), run); err != nil {
			a.log.Error("failed to persist run %s: %v", run.ID, err)
		}
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *App) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if a.repo == nil {
		writeError(w, errors.NotFound("run storage"))
		return
	}
	runs, err := a.repo.List(r.Context(), 50)
	if err != nil {
		writeError(w, errors.DatabaseError(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *App) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *App) handleRunReport(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(report.RenderHTML(run))
}

func (a *App) loadRun(w http.ResponseWriter, r *http.Request) (*threshold.Run, bool) {
	if a.repo == nil {
		writeError(w, errors.NotFound("run storage"))
		return nil, false
	}
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.InvalidInput(err.Error()))
		return nil, false
	}
	run, err := a.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, errors.NotFound("optimization run"))
		return nil, false
	}
	return run, true
}

// table materializes the request into a DE table
func (req *optimizeRequest) table() (*de.Table, error) {
	if req.Demo != nil {
		cfg := *req.Demo
		if cfg.GeneCount == 0 {
			cfg = testkit.DefaultDEConfig()
		}
		return testkit.NewDEGenerator(cfg).Table(), nil
	}
	rows := make([]de.Row, len(req.Rows))
	for i, gr := range req.Rows {
		rows[i] = de.Row{
			GeneID:     gr.GeneID,
			EffectSize: deref(gr.EffectSize),
			RawPValue:  deref(gr.PValue),
		}
	}
	return de.NewTable(rows)
}

func deref(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput, errors.CodeConfigInvalid:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}
