package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hostelhub/hostelhub-backend/api/responses"
	"github.com/hostelhub/hostelhub-backend/internal/rooms"
	pkgerrors "github.com/hostelhub/hostelhub-backend/pkg/errors"
	"github.com/hostelhub/hostelhub-backend/pkg/logger"
)

// RoomsAvailability returns the public availability snapshot. The numbers are
// advisory; confirmation is the only operation that reserves a unit.
func RoomsAvailability(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rooms service unavailable"))
			return
		}

		availability, err := svc.ListAvailability(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, availability)
	}
}

// RoomDetail returns one active room by id.
func RoomDetail(svc rooms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rooms service unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "roomId"))
		roomID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid room id"))
			return
		}

		room, err := svc.GetRoom(r.Context(), roomID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, room)
	}
}
