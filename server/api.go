package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ezbizservices/seo-mcp/keystore"
	"github.com/ezbizservices/seo-mcp/server/auth"
)

// handleSignup provisions a free-tier key. Signing up again with the same
// email recovers the existing key instead of minting a second one.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Name == "" || request.Email == "" {
		s.writeJSONError(w, http.StatusBadRequest, "name and email required")
		return
	}
	ctx := r.Context()

	existing, err := s.store.GetByEmail(ctx, request.Email)
	if err == nil {
		month := keystore.MonthKey(time.Now())
		tier := auth.ParseTier(existing.Tier)
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"key":       existing.Key,
			"tier":      existing.Tier,
			"limit":     tier.Info().RequestsPerMonth,
			"used":      existing.UsageFor(month),
			"recovered": true,
		})
		return
	}
	if !errors.Is(err, keystore.ErrKeyNotFound) {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	record, err := s.store.Create(ctx, request.Name, request.Email, string(auth.TierFree))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("new free signup", "email", request.Email, "name", request.Name)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":   record.Key,
		"tier":  record.Tier,
		"limit": auth.TierFree.Info().RequestsPerMonth,
	})
}

// handleProvision creates or upgrades a key at an arbitrary tier. Guarded by
// the admin secret.
func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Admin-Secret")
	if s.adminSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.adminSecret)) != 1 {
		s.writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var request struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Tier  string `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Email == "" || request.Tier == "" {
		s.writeJSONError(w, http.StatusBadRequest, "email and tier required")
		return
	}
	ctx := r.Context()
	tier := auth.ParseTier(request.Tier)

	existing, err := s.store.GetByEmail(ctx, request.Email)
	if err == nil {
		if err := s.store.Upgrade(ctx, request.Email, string(tier)); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.logger.Info("key upgraded", "email", request.Email, "tier", tier)
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"key":      existing.Key,
			"tier":     string(tier),
			"limit":    tier.Info().RequestsPerMonth,
			"upgraded": true,
		})
		return
	}
	if !errors.Is(err, keystore.ErrKeyNotFound) {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	name := request.Name
	if name == "" {
		name = request.Email
	}
	record, err := s.store.Create(ctx, name, request.Email, string(tier))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("key provisioned", "email", request.Email, "tier", tier)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":      record.Key,
		"tier":     string(tier),
		"limit":    tier.Info().RequestsPerMonth,
		"upgraded": false,
	})
}

// handleUsage reports the current-month counter for a key.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.Header.Get(auth.HeaderAPIKey)
	}
	if key == "" {
		s.writeJSONError(w, http.StatusBadRequest, "key required")
		return
	}
	record, err := s.store.Validate(r.Context(), key)
	if err != nil {
		if errors.Is(err, keystore.ErrKeyNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "Invalid key")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	month := keystore.MonthKey(time.Now())
	tier := auth.ParseTier(record.Tier)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tier":  record.Tier,
		"month": month,
		"used":  record.UsageFor(month),
		"limit": tier.Info().RequestsPerMonth,
	})
}

// handlePricing publishes the tier table.
func (s *Server) handlePricing(w http.ResponseWriter, _ *http.Request) {
	type tierEntry struct {
		Tier             string `json:"tier"`
		Price            int    `json:"price"`
		RequestsPerMonth int64  `json:"requestsPerMonth"`
	}
	entries := make([]tierEntry, 0, 3)
	for _, tier := range auth.Tiers() {
		info := tier.Info()
		entries = append(entries, tierEntry{
			Tier:             string(tier),
			Price:            info.PriceUSD,
			RequestsPerMonth: info.RequestsPerMonth,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"tiers": entries})
}
