// internal/common/database/predictions.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"

	"heart-risk-workers/internal/common/errors"
	"heart-risk-workers/internal/models"
)

const insertPredictionQuery = `
	INSERT INTO prediction_log (
		id, respondent_id, survey, fingerprint, risk_score, risk_label,
		policy, variant, model_version, transform_version, source, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const selectPredictionQuery = `
	SELECT id, respondent_id, survey, risk_score, risk_label, policy,
		variant, model_version, transform_version, source, created_at
	FROM prediction_log WHERE id = $1`

// PredictionRepository stores prediction_log rows.
type PredictionRepository struct {
	db *sql.DB
}

func NewPredictionRepository(db *sql.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Insert writes rec. Failures are PREDICTION_PERSIST_FAILED.
func (r *PredictionRepository) Insert(ctx context.Context, rec *models.PredictionRecord) error {
	surveyJSON, err := json.Marshal(rec.Survey)
	if err != nil {
		return errors.NewPredictionPersistFailedError(fmt.Errorf("marshal survey: %w", err))
	}

	_, err = r.db.ExecContext(ctx, insertPredictionQuery,
		rec.ID,
		nullString(rec.RespondentID),
		surveyJSON,
		rec.Survey.Fingerprint(),
		rec.RiskScore,
		rec.RiskLabel,
		rec.Policy,
		rec.Variant,
		rec.ModelVersion,
		nullString(rec.TransformVersion),
		rec.Source,
		rec.CreatedAt,
	)
	if err != nil {
		return errors.NewPredictionPersistFailedError(err).WithMetadata("predictionId", rec.ID)
	}
	return nil
}

// Get loads one prediction by id. Ids that are not UUIDs cannot exist.
func (r *PredictionRepository) Get(ctx context.Context, id string) (*models.PredictionRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NewResourceNotFoundError("postgres", fmt.Sprintf("prediction %s not found", id))
	}

	var (
		rec              models.PredictionRecord
		respondentID     sql.NullString
		transformVersion sql.NullString
		surveyJSON       []byte
	)
	err := r.db.QueryRowContext(ctx, selectPredictionQuery, id).Scan(
		&rec.ID, &respondentID, &surveyJSON, &rec.RiskScore, &rec.RiskLabel, &rec.Policy,
		&rec.Variant, &rec.ModelVersion, &transformVersion, &rec.Source, &rec.CreatedAt,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewResourceNotFoundError("postgres", fmt.Sprintf("prediction %s not found", id))
		}
		return nil, errors.NewExternalServiceError("postgres", err)
	}
	if err := json.Unmarshal(surveyJSON, &rec.Survey); err != nil {
		return nil, errors.NewParseError(fmt.Errorf("stored survey for %s: %w", id, err))
	}
	rec.RespondentID = respondentID.String
	rec.TransformVersion = transformVersion.String
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
