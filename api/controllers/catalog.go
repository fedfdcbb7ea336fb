package controllers

import (
	"net/http"

	"github.com/angelmondragon/skawsh-sack/api/responses"
	"github.com/angelmondragon/skawsh-sack/api/validators"
	"github.com/angelmondragon/skawsh-sack/internal/catalog"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/angelmondragon/skawsh-sack/pkg/logger"
)

type studioServicesResponse struct {
	StudioID   string            `json:"studio_id"`
	StudioName string            `json:"studio_name"`
	Services   []catalog.Service `json:"services"`
}

// StudioServices lists the services a studio offers.
func StudioServices(cat catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		studioID, err := validators.PathParam(r, "studioID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		services, err := cat.Services(r.Context(), studioID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, studioServicesResponse{
			StudioID:   studioID,
			StudioName: cat.StudioName(r.Context(), studioID),
			Services:   services,
		})
	}
}
