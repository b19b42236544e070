package predictor

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"heart-risk-workers/internal/common/errors"
	"heart-risk-workers/internal/common/logger"
	"heart-risk-workers/internal/common/metrics"
	"heart-risk-workers/internal/decision"
	"heart-risk-workers/internal/models"
	"heart-risk-workers/internal/survey"
)

var errNoStore = stderrors.New("no prediction store configured")

// Store persists prediction records.
type Store interface {
	Insert(ctx context.Context, rec *models.PredictionRecord) error
}

// Cache holds prediction results keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string, out interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// Indexer publishes prediction events for analytics.
type Indexer interface {
	IndexPrediction(ctx context.Context, event models.PredictionEvent) error
}

// Assessment is a prediction plus the bookkeeping around it.
type Assessment struct {
	PredictionID     string         `json:"predictionId"`
	RespondentID     string         `json:"respondentId,omitempty"`
	RiskLabel        decision.Label `json:"riskLabel"`
	RiskScore        float64        `json:"riskScore"`
	HighRisk         bool           `json:"highRisk"`
	Message          string         `json:"message"`
	Policy           string         `json:"policy"`
	Variant          string         `json:"variant"`
	ModelVersion     string         `json:"modelVersion"`
	TransformVersion string         `json:"transformVersion,omitempty"`
	CacheHit         bool           `json:"cacheHit"`
	Persisted        bool           `json:"persisted"`
	PredictedAt      time.Time      `json:"predictedAt"`
}

// PipelineOptions wires the optional stores. A nil store is skipped.
type PipelineOptions struct {
	Predictor          *Predictor
	Store              Store
	Cache              Cache
	Indexer            Indexer
	RequirePersistence bool
	Logger             logger.Logger
}

// Pipeline runs a prediction and records it in the configured stores.
type Pipeline struct {
	predictor          *Predictor
	store              Store
	cache              Cache
	indexer            Indexer
	requirePersistence bool
	logger             logger.Logger
}

func NewPipeline(opts PipelineOptions) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Pipeline{
		predictor:          opts.Predictor,
		store:              opts.Store,
		cache:              opts.Cache,
		indexer:            opts.Indexer,
		requirePersistence: opts.RequirePersistence,
		logger:             log,
	}
}

// Predictor returns the underlying predictor.
func (p *Pipeline) Predictor() *Predictor {
	return p.predictor
}

// Assess predicts rec, then persists, indexes and caches the result. Only a
// persist failure with RequirePersistence set fails the call; index and cache
// failures are logged.
func (p *Pipeline) Assess(ctx context.Context, respondentID string, rec survey.Record, source string) (*Assessment, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	key := p.predictor.CacheKey(rec)
	result, cacheHit := p.lookup(ctx, key)
	if cacheHit {
		result.Label = p.predictor.Decide(result.Score)
	} else {
		var err error
		result, err = p.predictor.Predict(ctx, rec)
		if err != nil {
			return nil, err
		}
	}

	record := &models.PredictionRecord{
		ID:               uuid.New().String(),
		RespondentID:     respondentID,
		Survey:           rec,
		RiskScore:        result.Score,
		RiskLabel:        string(result.Label),
		Policy:           result.Policy,
		Variant:          result.Variant,
		ModelVersion:     result.ModelVersion,
		TransformVersion: result.TransformVersion,
		Source:           source,
		CreatedAt:        time.Now().UTC(),
	}

	persisted, err := p.persist(ctx, record)
	if err != nil {
		return nil, err
	}

	if p.indexer != nil {
		if err := p.indexer.IndexPrediction(ctx, models.NewPredictionEvent(record, result.Label.IsHigh())); err != nil {
			p.logger.Warn("prediction index failed", map[string]interface{}{
				"predictionId": record.ID,
				"error":        err.Error(),
			})
		}
	}

	if p.cache != nil && !cacheHit {
		if err := p.cache.Set(ctx, key, result); err != nil {
			p.logger.Warn("prediction cache set failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	p.logger.Info("risk assessed", map[string]interface{}{
		"predictionId": record.ID,
		"riskScore":    result.Score,
		"riskLabel":    string(result.Label),
		"variant":      result.Variant,
		"modelVersion": result.ModelVersion,
		"cacheHit":     cacheHit,
		"source":       source,
	})

	return &Assessment{
		PredictionID:     record.ID,
		RespondentID:     respondentID,
		RiskLabel:        result.Label,
		RiskScore:        result.Score,
		HighRisk:         result.Label.IsHigh(),
		Message:          result.Label.Message(),
		Policy:           result.Policy,
		Variant:          result.Variant,
		ModelVersion:     result.ModelVersion,
		TransformVersion: result.TransformVersion,
		CacheHit:         cacheHit,
		Persisted:        persisted,
		PredictedAt:      record.CreatedAt,
	}, nil
}

func (p *Pipeline) lookup(ctx context.Context, key string) (*Result, bool) {
	if p.cache == nil {
		return nil, false
	}
	var cached Result
	hit, err := p.cache.Get(ctx, key, &cached)
	if err != nil {
		p.logger.Warn("prediction cache lookup failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, false
	}
	if !hit {
		return nil, false
	}
	metrics.PredictionCacheHits.Inc()
	return &cached, true
}

func (p *Pipeline) persist(ctx context.Context, record *models.PredictionRecord) (bool, error) {
	if p.store == nil {
		if p.requirePersistence {
			return false, errors.NewPredictionPersistFailedError(errNoStore)
		}
		return false, nil
	}
	if err := p.store.Insert(ctx, record); err != nil {
		if p.requirePersistence {
			return false, err
		}
		p.logger.Warn("prediction persist failed", map[string]interface{}{
			"predictionId": record.ID,
			"error":        err.Error(),
		})
		return false, nil
	}
	return true, nil
}
