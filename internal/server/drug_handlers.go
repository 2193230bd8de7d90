package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"healthhub/internal/app"
	"healthhub/internal/domain"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleLookupByBarcode(w http.ResponseWriter, r *http.Request) {
	barcode := strings.TrimSpace(chi.URLParam(r, "barcode"))
	if barcode == "" {
		writeError(w, codeParamError, "barcode is required")
		return
	}
	drug, ok, err := s.drugs.LookupByBarcode(r.Context(), barcode)
	if err != nil {
		writeError(w, codeError, "drug lookup failed")
		return
	}
	if !ok {
		writeError(w, codeNotFound, "drug not found")
		return
	}
	writeResult(w, drug)
}

func (s *Server) handleSearchDrugs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := intParam(query.Get("page"), 1)
	size := intParam(query.Get("size"), 10)
	var status *domain.DrugStatus
	if raw := query.Get("status"); raw != "" {
		parsed, ok := domain.ParseDrugStatus(raw)
		if !ok {
			writeError(w, codeParamError, "invalid status")
			return
		}
		status = &parsed
	}
	drugs, total, err := s.drugs.Search(r.Context(), app.SearchQuery{
		Keyword:      query.Get("keyword"),
		Manufacturer: query.Get("manufacturer"),
		Status:       status,
		Page:         page,
		Size:         size,
	})
	if err != nil {
		writeError(w, codeError, "drug search failed")
		return
	}
	writeResult(w, map[string]any{
		"list":  drugs,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

func (s *Server) handleDrugDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, codeParamError, "invalid drug id")
		return
	}
	drug, ok, err := s.drugs.GetByID(id)
	if err != nil {
		writeError(w, codeError, "drug lookup failed")
		return
	}
	if !ok {
		writeError(w, codeNotFound, "drug not found")
		return
	}
	writeResult(w, drug)
}

func (s *Server) handleDrugSuggest(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, codeParamError, "name is required")
		return
	}
	limit := intParam(r.URL.Query().Get("limit"), 10)
	drugs, err := s.drugs.Suggest(name, limit)
	if err != nil {
		writeError(w, codeError, "drug suggest failed")
		return
	}
	writeResult(w, drugs)
}

func (s *Server) handlePopularDrugs(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r.URL.Query().Get("limit"), 10)
	drugs, err := s.drugs.Popular(limit)
	if err != nil {
		writeError(w, codeError, "popular drugs failed")
		return
	}
	writeResult(w, drugs)
}

func (s *Server) handleAddDrug(w http.ResponseWriter, r *http.Request) {
	var drug domain.Drug
	if !decodeBody(w, r, &drug) {
		return
	}
	saved, err := s.drugs.SaveDrug(drug)
	if err != nil {
		writeServiceError(w, err, "add drug failed")
		return
	}
	writeResult(w, saved)
}

func (s *Server) handleUpdateDrug(w http.ResponseWriter, r *http.Request) {
	var drug domain.Drug
	if !decodeBody(w, r, &drug) {
		return
	}
	updated, err := s.drugs.UpdateDrug(drug)
	if err != nil {
		writeServiceError(w, err, "update drug failed")
		return
	}
	writeResult(w, updated)
}

func (s *Server) handleDeleteDrug(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, codeParamError, "invalid drug id")
		return
	}
	if err := s.drugs.DeleteDrug(id); err != nil {
		writeServiceError(w, err, "delete drug failed")
		return
	}
	writeResult(w, nil)
}

type statusRequest struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func (s *Server) handleUpdateDrugStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status, ok := domain.ParseDrugStatus(req.Status)
	if !ok {
		writeError(w, codeParamError, "invalid status")
		return
	}
	if err := s.drugs.UpdateStatus(req.ID, status); err != nil {
		writeServiceError(w, err, "update drug status failed")
		return
	}
	writeResult(w, nil)
}

func (s *Server) handleDrugStatistics(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.drugs.Statistics()
	if err != nil {
		writeError(w, codeError, "drug statistics failed")
		return
	}
	writeResult(w, stats)
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(out); err != nil {
		writeError(w, codeParamError, "invalid JSON body")
		return false
	}
	return true
}
