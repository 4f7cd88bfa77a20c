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

package assets

import (
	"errors"
	"fmt"

	"github.com/gavel-io/gavel/authz"
	"github.com/gavel-io/gavel/codec"
	"github.com/gavel-io/gavel/database"
	"github.com/gavel-io/gavel/database/models"
	"github.com/gavel-io/gavel/governance"
)

// Operation names accepted in asset call envelopes
const (
	OpMintAsset       = "mint_asset"
	OpUpdateStatus    = "update_status"
	OpTransferCustody = "transfer_custody"
	OpRecordService   = "record_service"
)

// MintAssetPayload is the envelope body for mint_asset
type MintAssetPayload struct {
	Serial    string `cbor:"serial"`
	Maker     string `cbor:"maker"`
	Model     string `cbor:"model"`
	Custodian string `cbor:"custodian"`
}

// UpdateStatusPayload is the envelope body for update_status
type UpdateStatusPayload struct {
	AssetID uint64 `cbor:"asset_id"`
	Status  string `cbor:"status"`
}

// TransferCustodyPayload is the envelope body for transfer_custody
type TransferCustodyPayload struct {
	AssetID   uint64 `cbor:"asset_id"`
	Custodian string `cbor:"custodian"`
}

// RecordServicePayload is the envelope body for record_service
type RecordServicePayload struct {
	AssetID uint64 `cbor:"asset_id"`
	Note    string `cbor:"note"`
}

// Name returns the collaborator name proposals address
func (a *AssetRegistry) Name() string {
	return CollaboratorName
}

// Apply executes an approved governance call against the asset table.
// It runs inside the voting transaction, so any error rolls the whole
// vote back. A missing asset surfaces as models.ErrAssetNotFound, which
// becomes the execution failure cause reported to the voter.
func (a *AssetRegistry) Apply(
	txn *database.Txn,
	caller string,
	call governance.Call,
) error {
	if caller != a.config.EngineIdentity {
		return authz.AuthorizationError{
			Identity: caller,
			Reason:   "asset changes are made only through governance",
		}
	}
	envelope, err := codec.DecodeEnvelope(call.Payload)
	if err != nil {
		return authz.ValidationError{
			Reason: fmt.Sprintf("malformed call payload: %v", err),
		}
	}
	switch envelope.Op {
	case OpMintAsset:
		return a.applyMint(txn, caller, envelope, call)
	case OpUpdateStatus:
		return a.applyUpdateStatus(txn, caller, envelope, call)
	case OpTransferCustody:
		return a.applyTransferCustody(txn, caller, envelope, call)
	case OpRecordService:
		return a.applyRecordService(txn, caller, envelope, call)
	default:
		return authz.ValidationError{
			Reason: fmt.Sprintf(
				"unknown asset operation: %q",
				envelope.Op,
			),
		}
	}
}

func (a *AssetRegistry) applyMint(
	txn *database.Txn,
	caller string,
	envelope codec.Envelope,
	call governance.Call,
) error {
	var payload MintAssetPayload
	if err := envelope.DecodeBody(&payload); err != nil {
		return authz.ValidationError{
			Reason: fmt.Sprintf("malformed mint_asset body: %v", err),
		}
	}
	if payload.Serial == "" {
		return authz.ValidationError{Reason: "serial cannot be blank"}
	}
	if payload.Maker == "" {
		return authz.ValidationError{Reason: "maker cannot be blank"}
	}
	if payload.Custodian == "" {
		return authz.ValidationError{Reason: "custodian cannot be blank"}
	}
	_, err := a.db.GetAssetBySerial(payload.Serial, txn)
	if err == nil {
		return authz.StateError{
			Reason: fmt.Sprintf(
				"serial %s is already registered",
				payload.Serial,
			),
		}
	}
	if !errors.Is(err, models.ErrAssetNotFound) {
		return err
	}
	// Deriving the ID inside the transaction keeps the sequence dense
	// even when a later call in the proposal fails and rolls us back
	maxId, err := a.db.GetMaxAssetID(txn)
	if err != nil {
		return err
	}
	assetId := maxId + 1
	if err := a.db.SetAsset(&models.Asset{
		ID:        assetId,
		Serial:    payload.Serial,
		Maker:     payload.Maker,
		Model:     payload.Model,
		Status:    uint8(StatusActive),
		Custodian: payload.Custodian,
	}, txn); err != nil {
		return err
	}
	if err := a.appendEvent(
		txn,
		assetId,
		EventMinted,
		caller,
		fmt.Sprintf("minted with serial %s", payload.Serial),
		call.ProposalID,
	); err != nil {
		return err
	}
	a.logger.Info(
		"asset minted",
		"asset_id", assetId,
		"serial", payload.Serial,
		"proposal_id", call.ProposalID,
	)
	a.metrics.appliesTotal.WithLabelValues(OpMintAsset).Inc()
	a.metrics.assetsTotal.Inc()
	return nil
}

func (a *AssetRegistry) applyUpdateStatus(
	txn *database.Txn,
	caller string,
	envelope codec.Envelope,
	call governance.Call,
) error {
	var payload UpdateStatusPayload
	if err := envelope.DecodeBody(&payload); err != nil {
		return authz.ValidationError{
			Reason: fmt.Sprintf("malformed update_status body: %v", err),
		}
	}
	status, err := ParseStatus(payload.Status)
	if err != nil {
		return authz.ValidationError{Reason: err.Error()}
	}
	asset, err := a.db.GetAsset(payload.AssetID, txn)
	if err != nil {
		return err
	}
	previous := Status(asset.Status)
	asset.Status = uint8(status)
	if err := a.db.SetAsset(asset, txn); err != nil {
		return err
	}
	if err := a.appendEvent(
		txn,
		asset.ID,
		EventStatusChanged,
		caller,
		fmt.Sprintf("status changed from %s to %s", previous, status),
		call.ProposalID,
	); err != nil {
		return err
	}
	a.logger.Info(
		"asset status updated",
		"asset_id", asset.ID,
		"status", status.String(),
		"proposal_id", call.ProposalID,
	)
	a.metrics.appliesTotal.WithLabelValues(OpUpdateStatus).Inc()
	return nil
}

func (a *AssetRegistry) applyTransferCustody(
	txn *database.Txn,
	caller string,
	envelope codec.Envelope,
	call governance.Call,
) error {
	var payload TransferCustodyPayload
	if err := envelope.DecodeBody(&payload); err != nil {
		return authz.ValidationError{
			Reason: fmt.Sprintf("malformed transfer_custody body: %v", err),
		}
	}
	if payload.Custodian == "" {
		return authz.ValidationError{Reason: "custodian cannot be blank"}
	}
	asset, err := a.db.GetAsset(payload.AssetID, txn)
	if err != nil {
		return err
	}
	previous := asset.Custodian
	asset.Custodian = payload.Custodian
	if err := a.db.SetAsset(asset, txn); err != nil {
		return err
	}
	if err := a.appendEvent(
		txn,
		asset.ID,
		EventCustodyTransferred,
		caller,
		fmt.Sprintf(
			"custody transferred from %s to %s",
			previous,
			payload.Custodian,
		),
		call.ProposalID,
	); err != nil {
		return err
	}
	a.logger.Info(
		"asset custody transferred",
		"asset_id", asset.ID,
		"custodian", payload.Custodian,
		"proposal_id", call.ProposalID,
	)
	a.metrics.appliesTotal.WithLabelValues(OpTransferCustody).Inc()
	return nil
}

func (a *AssetRegistry) applyRecordService(
	txn *database.Txn,
	caller string,
	envelope codec.Envelope,
	call governance.Call,
) error {
	var payload RecordServicePayload
	if err := envelope.DecodeBody(&payload); err != nil {
		return authz.ValidationError{
			Reason: fmt.Sprintf("malformed record_service body: %v", err),
		}
	}
	if payload.Note == "" {
		return authz.ValidationError{Reason: "service note cannot be blank"}
	}
	asset, err := a.db.GetAsset(payload.AssetID, txn)
	if err != nil {
		return err
	}
	if err := a.appendEvent(
		txn,
		asset.ID,
		EventServiceRecorded,
		caller,
		payload.Note,
		call.ProposalID,
	); err != nil {
		return err
	}
	a.logger.Info(
		"asset service recorded",
		"asset_id", asset.ID,
		"proposal_id", call.ProposalID,
	)
	a.metrics.appliesTotal.WithLabelValues(OpRecordService).Inc()
	return nil
}

func (a *AssetRegistry) appendEvent(
	txn *database.Txn,
	assetID uint64,
	kind EventKind,
	actor string,
	note string,
	proposalID uint64,
) error {
	return a.db.SetAssetEvent(&models.AssetEvent{
		AssetID:    assetID,
		Kind:       uint8(kind),
		Actor:      actor,
		Note:       note,
		ProposalID: proposalID,
	}, txn)
}
