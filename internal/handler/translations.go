package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vpoguide/backend/internal/i18n"
)

type TranslationsHandler struct {
	catalog *i18n.Catalog
}

func NewTranslationsHandler(catalog *i18n.Catalog) *TranslationsHandler {
	return &TranslationsHandler{catalog: catalog}
}

// Languages handles GET /api/translations.
func (h *TranslationsHandler) Languages(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"default":   i18n.DefaultLanguage,
		"languages": h.catalog.Languages(),
	})
}

// Get handles GET /api/translations/{lang}. With ?key= it resolves a single
// key and reports how it was resolved.
func (h *TranslationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	lang := chi.URLParam(r, "lang")

	if key := r.URL.Query().Get("key"); key != "" {
		res := h.catalog.Lookup(lang, key)
		JSON(w, http.StatusOK, map[string]string{
			"key":    res.Key,
			"text":   res.Text,
			"result": res.Kind.String(),
		})
		return
	}

	table, fallbacks := h.catalog.Flatten(lang)
	w.Header().Set("X-Translation-Fallbacks", strconv.Itoa(len(fallbacks)))
	JSON(w, http.StatusOK, map[string]interface{}{
		"language":  lang,
		"supported": h.catalog.Supports(lang),
		"strings":   table,
		"fallbacks": fallbacks,
	})
}
