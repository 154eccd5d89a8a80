// Copyright (c) 2026 Bestiary. All rights reserved.

package entity

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/buivan/bestiary/internal/platform/request"
	"github.com/buivan/bestiary/internal/platform/respond"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/translated/{name}", handler.getTranslatedEntity)
	router.Get("/{name}", handler.getEntity)
	return router
}

// getEntity handles GET /entity/{name}.
func (handler *Handler) getEntity(writer http.ResponseWriter, request *http.Request) {
	name := requestutil.Param(request, "name")

	view, err := handler.service.GetEntity(request.Context(), name)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, view)
}

// getTranslatedEntity handles GET /entity/translated/{name}.
func (handler *Handler) getTranslatedEntity(writer http.ResponseWriter, request *http.Request) {
	name := requestutil.Param(request, "name")

	view, err := handler.service.GetTranslatedEntity(request.Context(), name)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, view)
}
