package tripplans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"tripvault/internal/common"
	"tripvault/internal/dbx"
	"tripvault/internal/logging"
	"tripvault/internal/models"
	"tripvault/internal/serialize"
)

// SQLiteRepository implements Repository with the two-stage link-conflict
// repair: proactive cleanup before the write, and a bounded
// classify-repair-retry pass when the write still hits the unique link
// index.
type SQLiteRepository struct {
	db  *sql.DB
	log logging.Logger
}

func NewSQLiteRepository(db *sql.DB, log logging.Logger) *SQLiteRepository {
	return &SQLiteRepository{db: db, log: log}
}

const planColumns = `id, owner_id, destination, purpose, arrival_flight,
	arrival_date, departure_flight, departure_date, accommodation_type,
	accommodation_name, accommodation_address, in_transit, entry_info_id,
	created_at, updated_at`

// displacedWarning is surfaced to the caller when rows were deleted as a
// side effect of saving.
const displacedWarning = "an earlier trip plan draft for this trip was replaced"

func (r *SQLiteRepository) Save(ctx context.Context, plan *models.TripPlan) (*models.TripPlanSaveResult, error) {
	if err := serialize.Validate(plan); err != nil {
		return nil, err
	}

	row := *plan
	if row.ID == "" {
		row.ID = serialize.NewID()
	}
	now := serialize.Now()

	row.Destination = serialize.CleanPtr(row.Destination)
	row.Purpose = serialize.CleanPtr(row.Purpose)
	row.ArrivalFlight = serialize.CleanPtr(row.ArrivalFlight)
	row.ArrivalDate = serialize.CleanPtr(row.ArrivalDate)
	row.DepartureFlight = serialize.CleanPtr(row.DepartureFlight)
	row.DepartureDate = serialize.CleanPtr(row.DepartureDate)
	row.AccommodationType = serialize.CleanPtr(row.AccommodationType)
	row.AccommodationName = serialize.CleanPtr(row.AccommodationName)
	row.AccommodationAddress = serialize.CleanPtr(row.AccommodationAddress)
	row.EntryInfoID = serialize.CleanPtr(row.EntryInfoID)

	var displaced []models.TripPlan

	writeErr := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// Pre-write cleanup: another plan already holding this link is a
		// logically superseded draft. Removing it up front keeps the
		// post-write repair rare.
		if row.EntryInfoID != nil {
			taken, err := r.deleteWhere(ctx, tx,
				`entry_info_id = ? AND id <> ?`, *row.EntryInfoID, row.ID)
			if err != nil {
				return err
			}
			displaced = append(displaced, taken...)
		}
		return r.upsert(ctx, tx, &row, now)
	})

	if writeErr != nil && dbx.IsConstraintViolation(writeErr) {
		r.log.Warn(ctx, "trip plan write hit a constraint, attempting repair",
			"plan", row.ID, "error", writeErr)
		repaired, retryErr := r.repairAndRetry(ctx, &row, now)
		if retryErr != nil {
			// Propagate the original failure with the recovery attempt
			// chained for context.
			return nil, multierr.Append(
				fmt.Errorf("save trip plan: %w", common.ErrConstraintConflict),
				fmt.Errorf("original: %v; recovery retry: %w", writeErr, retryErr))
		}
		displaced = append(displaced, repaired...)
	} else if writeErr != nil {
		return nil, fmt.Errorf("save trip plan: %w", writeErr)
	}

	saved, err := r.GetByID(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("read back trip plan %s: %w", row.ID, common.ErrNotFound)
	}

	result := &models.TripPlanSaveResult{Plan: saved, Displaced: displaced}
	if len(displaced) > 0 {
		result.Warning = displacedWarning
	}
	return result, nil
}

// repairAndRetry is the last-resort recovery for a constraint violation
// the pre-write cleanup did not prevent: drop plans that compete for the
// same destination, then plans that compete for the same link, then retry
// the write exactly once.
func (r *SQLiteRepository) repairAndRetry(ctx context.Context, row *models.TripPlan, now string) ([]models.TripPlan, error) {
	var displaced []models.TripPlan

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var (
			taken []models.TripPlan
			err   error
		)
		if row.Destination != nil {
			taken, err = r.deleteWhere(ctx, tx,
				`owner_id = ? AND destination = ? AND id <> ?`,
				row.OwnerID, *row.Destination, row.ID)
		} else {
			taken, err = r.deleteWhere(ctx, tx,
				`owner_id = ? AND destination IS NULL AND id <> ?`,
				row.OwnerID, row.ID)
		}
		if err != nil {
			return err
		}
		displaced = append(displaced, taken...)

		if row.EntryInfoID != nil {
			taken, err = r.deleteWhere(ctx, tx,
				`entry_info_id = ? AND id <> ?`, *row.EntryInfoID, row.ID)
			if err != nil {
				return err
			}
			displaced = append(displaced, taken...)
		}

		return r.upsert(ctx, tx, row, now)
	})
	if err != nil {
		return nil, err
	}
	return displaced, nil
}

// deleteWhere collects the matching rows before deleting them so the
// caller can report what was displaced.
func (r *SQLiteRepository) deleteWhere(ctx context.Context, tx dbx.DBTX, where string, args ...any) ([]models.TripPlan, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+planColumns+` FROM trip_plans WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("collect displaced plans: %w", err)
	}
	defer rows.Close()

	var taken []models.TripPlan
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("collect displaced plans: %w", err)
		}
		taken = append(taken, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect displaced plans: %w", err)
	}
	if len(taken) == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM trip_plans WHERE `+where, args...); err != nil {
		return nil, fmt.Errorf("delete displaced plans: %w", err)
	}
	return taken, nil
}

func (r *SQLiteRepository) upsert(ctx context.Context, tx dbx.DBTX, row *models.TripPlan, now string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO trip_plans (`+planColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			destination = excluded.destination,
			purpose = excluded.purpose,
			arrival_flight = excluded.arrival_flight,
			arrival_date = excluded.arrival_date,
			departure_flight = excluded.departure_flight,
			departure_date = excluded.departure_date,
			accommodation_type = excluded.accommodation_type,
			accommodation_name = excluded.accommodation_name,
			accommodation_address = excluded.accommodation_address,
			in_transit = excluded.in_transit,
			entry_info_id = excluded.entry_info_id,
			updated_at = excluded.updated_at
	`, row.ID, row.OwnerID, row.Destination, row.Purpose,
		row.ArrivalFlight, row.ArrivalDate, row.DepartureFlight, row.DepartureDate,
		row.AccommodationType, row.AccommodationName, row.AccommodationAddress,
		row.InTransit, row.EntryInfoID, now, now)
	if err != nil {
		return fmt.Errorf("upsert trip plan: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.TripPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM trip_plans WHERE id = ?`, id)
	p, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trip plan: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetByEntryInfoID(ctx context.Context, entryInfoID string) (*models.TripPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM trip_plans WHERE entry_info_id = ?`, entryInfoID)
	p, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trip plan by entry info: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]models.TripPlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+planColumns+` FROM trip_plans
		WHERE owner_id = ?
		ORDER BY updated_at DESC, rowid DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list trip plans: %w", err)
	}
	defer rows.Close()

	var result []models.TripPlan
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("list trip plans: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trip plans: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trip_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trip plan: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trip plan: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trip_plans WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete trip plans: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM trip_plans WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("trip plan exists: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) CountByOwnerID(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trip_plans WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count trip plans: %w", err)
	}
	return n, nil
}

func scan(row dbx.RowScanner) (*models.TripPlan, error) {
	var (
		p         models.TripPlan
		dest      sql.NullString
		purpose   sql.NullString
		arrFlight sql.NullString
		arrDate   sql.NullString
		depFlight sql.NullString
		depDate   sql.NullString
		accType   sql.NullString
		accName   sql.NullString
		accAddr   sql.NullString
		inTransit int
		entryInfo sql.NullString
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &dest, &purpose, &arrFlight, &arrDate,
		&depFlight, &depDate, &accType, &accName, &accAddr, &inTransit,
		&entryInfo, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Destination = dbx.PtrFromNull(dest)
	p.Purpose = dbx.PtrFromNull(purpose)
	p.ArrivalFlight = dbx.PtrFromNull(arrFlight)
	p.ArrivalDate = dbx.PtrFromNull(arrDate)
	p.DepartureFlight = dbx.PtrFromNull(depFlight)
	p.DepartureDate = dbx.PtrFromNull(depDate)
	p.AccommodationType = dbx.PtrFromNull(accType)
	p.AccommodationName = dbx.PtrFromNull(accName)
	p.AccommodationAddress = dbx.PtrFromNull(accAddr)
	p.InTransit = inTransit != 0
	p.EntryInfoID = dbx.PtrFromNull(entryInfo)
	return &p, nil
}
