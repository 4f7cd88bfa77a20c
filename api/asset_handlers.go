// Copyright 2026 Gavel Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"net/http"

	"github.com/gavel-io/gavel/assets"
	"github.com/gavel-io/gavel/database/models"
)

// handleAssets handles GET /v1/assets. With a serial query parameter
// it returns the single matching asset; without one it returns a
// paginated listing.
func (a *API) handleAssets(
	w http.ResponseWriter,
	r *http.Request,
) {
	if serial := r.URL.Query().Get("serial"); serial != "" {
		asset, err := a.config.Assets.AssetBySerial(serial)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, assetResponse(asset))
		return
	}
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	total, err := a.config.Assets.Count()
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	records, err := a.config.Assets.Assets(
		params.Limit(),
		params.Offset(),
		params.Order,
	)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	response := make([]AssetResponse, 0, len(records))
	for i := range records {
		response = append(response, assetResponse(&records[i]))
	}
	SetPaginationHeaders(w, int(total), params)
	writeJSON(w, http.StatusOK, response)
}

// handleAsset handles GET /v1/assets/{id}.
func (a *API) handleAsset(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	asset, err := a.config.Assets.AssetByID(id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assetResponse(asset))
}

// handleAssetHistory handles GET /v1/assets/{id}/history and returns
// the asset's event log, oldest first.
func (a *API) handleAssetHistory(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	events, err := a.config.Assets.History(id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	response := make([]AssetEventResponse, 0, len(events))
	for _, event := range events {
		response = append(response, AssetEventResponse{
			AssetID:    event.AssetID,
			Kind:       assets.EventKind(event.Kind).String(),
			Actor:      event.Actor,
			Note:       event.Note,
			ProposalID: event.ProposalID,
			CreatedAt:  event.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// assetResponse maps an asset row onto the wire shape
func assetResponse(asset *models.Asset) AssetResponse {
	return AssetResponse{
		ID:        asset.ID,
		Serial:    asset.Serial,
		Maker:     asset.Maker,
		Model:     asset.Model,
		Status:    assets.Status(asset.Status).String(),
		Custodian: asset.Custodian,
		CreatedAt: asset.CreatedAt,
		UpdatedAt: asset.UpdatedAt,
	}
}
