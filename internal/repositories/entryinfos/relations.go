package entryinfos

import (
	"context"
	"database/sql"
	"fmt"

	"tripvault/internal/cryptox"
	"tripvault/internal/dbx"
	"tripvault/internal/models"
	"tripvault/internal/serialize"
)

// relationColumns is the column list of the aggregate join: the entry info
// followed by its linked document, profile and trip plan. Every joined
// column scans as nullable because the joins are LEFT.
const relationColumns = `
	ei.id, ei.owner_id, ei.destination_id, ei.status, ei.completion_percent,
	ei.attached_documents, ei.display_status, ei.identity_document_id,
	ei.personal_profile_id, ei.created_at, ei.updated_at,
	d.id, d.owner_id, d.document_number, d.full_name, d.date_of_birth,
	d.nationality, d.gender, d.issue_date, d.expiry_date, d.photo_ref,
	d.is_primary, d.created_at, d.updated_at,
	p.id, p.owner_id, p.phone, p.email, p.home_address, p.occupation,
	p.province_of_residence, p.country_of_residence, p.identity_document_id,
	p.is_default, p.created_at, p.updated_at,
	t.id, t.owner_id, t.destination, t.purpose, t.arrival_flight,
	t.arrival_date, t.departure_flight, t.departure_date,
	t.accommodation_type, t.accommodation_name, t.accommodation_address,
	t.in_transit, t.entry_info_id, t.created_at, t.updated_at`

// GetByOwnerWithRelations lists an owner's entry infos with the linked
// identity document, personal profile and trip plan resolved in a single
// left-join query, newest first. Fund items and receipts attach through
// many-to-many or one-to-many tables and are fetched separately by their
// own repositories. Only the rows the join actually touched are decrypted.
func (r *SQLiteRepository) GetByOwnerWithRelations(ctx context.Context, ownerID string) ([]models.EntryInfoAggregate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+relationColumns+`
		FROM entry_infos ei
		LEFT JOIN identity_documents d ON d.id = ei.identity_document_id
		LEFT JOIN personal_profiles p ON p.id = ei.personal_profile_id
		LEFT JOIN trip_plans t ON t.entry_info_id = ei.id
		WHERE ei.owner_id = ?
		ORDER BY ei.updated_at DESC, ei.rowid DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list entry info aggregates: %w", err)
	}
	defer rows.Close()

	var result []models.EntryInfoAggregate
	for rows.Next() {
		agg, err := r.scanAggregate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry info aggregate: %w", err)
		}
		result = append(result, *agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry info aggregates: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) scanAggregate(row dbx.RowScanner) (*models.EntryInfoAggregate, error) {
	var (
		info     models.EntryInfo
		dest     sql.NullString
		status   string
		attached string
		display  sql.NullString
		docLink  sql.NullString
		profLink sql.NullString

		dID, dOwner, dNumber, dName, dDOB       sql.NullString
		dNatl, dGender, dIssue, dExpiry, dPhoto sql.NullString
		dPrimary                                sql.NullInt64
		dCreated, dUpdated                      sql.NullString

		pID, pOwner, pPhone, pEmail, pAddress sql.NullString
		pOcc, pProvince, pCountry, pDocID     sql.NullString
		pDefault                              sql.NullInt64
		pCreated, pUpdated                    sql.NullString

		tID, tOwner, tDest, tPurpose             sql.NullString
		tArrFlight, tArrDate, tDepFlight         sql.NullString
		tDepDate, tAccType, tAccName, tAccAddr   sql.NullString
		tInTransit                               sql.NullInt64
		tEntryInfo, tCreated, tUpdated           sql.NullString
	)
	if err := row.Scan(
		&info.ID, &info.OwnerID, &dest, &status, &info.CompletionPercent,
		&attached, &display, &docLink, &profLink,
		&info.CreatedAt, &info.UpdatedAt,
		&dID, &dOwner, &dNumber, &dName, &dDOB,
		&dNatl, &dGender, &dIssue, &dExpiry, &dPhoto,
		&dPrimary, &dCreated, &dUpdated,
		&pID, &pOwner, &pPhone, &pEmail, &pAddress, &pOcc,
		&pProvince, &pCountry, &pDocID, &pDefault, &pCreated, &pUpdated,
		&tID, &tOwner, &tDest, &tPurpose, &tArrFlight,
		&tArrDate, &tDepFlight, &tDepDate,
		&tAccType, &tAccName, &tAccAddr,
		&tInTransit, &tEntryInfo, &tCreated, &tUpdated,
	); err != nil {
		return nil, err
	}

	info.DestinationID = dbx.PtrFromNull(dest)
	info.Status = models.EntryInfoStatus(status)
	info.DisplayStatus = dbx.PtrFromNull(display)
	info.IdentityDocumentID = dbx.PtrFromNull(docLink)
	info.PersonalProfileID = dbx.PtrFromNull(profLink)

	var err error
	if info.AttachedDocuments, err = serialize.UnmarshalStringSlice(attached); err != nil {
		return nil, fmt.Errorf("decode attached documents: %w", err)
	}

	agg := models.EntryInfoAggregate{EntryInfo: info}

	if dID.Valid {
		doc := models.IdentityDocument{
			ID:          dID.String,
			OwnerID:     dOwner.String,
			Nationality: dbx.PtrFromNull(dNatl),
			Gender:      dbx.PtrFromNull(dGender),
			IssueDate:   dbx.PtrFromNull(dIssue),
			ExpiryDate:  dbx.PtrFromNull(dExpiry),
			PhotoRef:    dbx.PtrFromNull(dPhoto),
			IsPrimary:   dPrimary.Int64 != 0,
			CreatedAt:   dCreated.String,
			UpdatedAt:   dUpdated.String,
		}
		if doc.DocumentNumber, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(dNumber)); err != nil {
			return nil, err
		}
		if doc.FullName, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(dName)); err != nil {
			return nil, err
		}
		if doc.DateOfBirth, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(dDOB)); err != nil {
			return nil, err
		}
		agg.IdentityDocument = &doc
	}

	if pID.Valid {
		profile := models.PersonalProfile{
			ID:                  pID.String,
			OwnerID:             pOwner.String,
			Occupation:          dbx.PtrFromNull(pOcc),
			ProvinceOfResidence: dbx.PtrFromNull(pProvince),
			CountryOfResidence:  dbx.PtrFromNull(pCountry),
			IdentityDocumentID:  dbx.PtrFromNull(pDocID),
			IsDefault:           pDefault.Int64 != 0,
			CreatedAt:           pCreated.String,
			UpdatedAt:           pUpdated.String,
		}
		if profile.Phone, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(pPhone)); err != nil {
			return nil, err
		}
		if profile.Email, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(pEmail)); err != nil {
			return nil, err
		}
		if profile.HomeAddress, err = cryptox.DecryptPtr(r.cipher, dbx.PtrFromNull(pAddress)); err != nil {
			return nil, err
		}
		agg.PersonalProfile = &profile
	}

	if tID.Valid {
		agg.TripPlan = &models.TripPlan{
			ID:                   tID.String,
			OwnerID:              tOwner.String,
			Destination:          dbx.PtrFromNull(tDest),
			Purpose:              dbx.PtrFromNull(tPurpose),
			ArrivalFlight:        dbx.PtrFromNull(tArrFlight),
			ArrivalDate:          dbx.PtrFromNull(tArrDate),
			DepartureFlight:      dbx.PtrFromNull(tDepFlight),
			DepartureDate:        dbx.PtrFromNull(tDepDate),
			AccommodationType:    dbx.PtrFromNull(tAccType),
			AccommodationName:    dbx.PtrFromNull(tAccName),
			AccommodationAddress: dbx.PtrFromNull(tAccAddr),
			InTransit:            tInTransit.Int64 != 0,
			EntryInfoID:          dbx.PtrFromNull(tEntryInfo),
			CreatedAt:            tCreated.String,
			UpdatedAt:            tUpdated.String,
		}
	}

	return &agg, nil
}
