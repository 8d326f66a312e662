package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"CreditRisk/internal/domain/models"
	domrepo "CreditRisk/internal/domain/repository"
	pkgch "CreditRisk/pkg/clickhouse"
	applogger "CreditRisk/pkg/logger"
)

const predictionsTable = "predictions"

// PredictionSchema is the DDL for the prediction history table.
func PredictionSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    id          String,
    request_id  String,
    customer_id String,
    model_name  LowCardinality(String),
    label       UInt8,
    probability Float64,
    risk_score  Float64,
    threshold   Float64,
    tier        LowCardinality(String),
    overlay     String,
    features    Array(Float64),
    degraded    UInt8,
    error       String,
    created_at  DateTime64(3, 'UTC')
) ENGINE = MergeTree
PARTITION BY toYYYYMM(created_at)
ORDER BY (model_name, created_at, id)`, database, predictionsTable),
	}
}

// CHPredictionStore keeps prediction history in ClickHouse.
type CHPredictionStore struct {
	ch      *pkgch.Client
	db      *sql.DB
	table   string
	maxRows int
	l       *applogger.Logger
}

func NewCHPredictionStore(ch *pkgch.Client, maxRows int) *CHPredictionStore {
	if maxRows <= 0 {
		maxRows = 100000
	}
	return &CHPredictionStore{
		ch:      ch,
		db:      ch.DB(),
		table:   ch.Database() + "." + predictionsTable,
		maxRows: maxRows,
		l:       applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (s *CHPredictionStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHPredictionStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, PredictionSchema(s.ch.Database()))
}

func (s *CHPredictionStore) Save(ctx context.Context, r *models.PredictionResult) error {
	return s.SaveBatch(ctx, []*models.PredictionResult{r})
}

const insertColumns = "id, request_id, customer_id, model_name, label, probability, risk_score, threshold, tier, overlay, features, degraded, error, created_at"

func (s *CHPredictionStore) SaveBatch(ctx context.Context, rs []*models.PredictionResult) error {
	if len(rs) == 0 {
		return nil
	}
	start := time.Now()
	const chunkSize = 2000
	for from := 0; from < len(rs); from += chunkSize {
		to := from + chunkSize
		if to > len(rs) {
			to = len(rs)
		}
		values := make([]string, 0, to-from)
		args := make([]interface{}, 0, (to-from)*14)
		for _, r := range rs[from:to] {
			if r == nil {
				continue
			}
			row, err := predictionRow(r)
			if err != nil {
				return err
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, row...)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, insertColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse insert predictions error", applogger.Int("rows", len(values)), applogger.Error(err))
			return fmt.Errorf("insert predictions: %w", err)
		}
	}
	s.l.Debug("clickhouse insert predictions ok",
		applogger.Int("rows", len(rs)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func predictionRow(r *models.PredictionResult) ([]interface{}, error) {
	overlay, err := json.Marshal(r.Overlay)
	if err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	return []interface{}{
		r.ID,
		r.RequestID,
		r.CustomerID,
		r.ModelName,
		uint8(r.Label),
		r.Probability,
		r.RiskScore,
		r.Threshold,
		string(r.Tier),
		string(overlay),
		r.RawInput.Slice(),
		boolToUint8(r.Degraded),
		r.Error,
		r.CreatedAt.UTC(),
	}, nil
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// historyQuery renders f as a SELECT with positional arguments, newest first.
func historyQuery(table string, f models.HistoryFilter, maxRows int) (string, []interface{}) {
	var where []string
	var args []interface{}
	if f.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.ModelName != "" {
		where = append(where, "model_name = ?")
		args = append(args, f.ModelName)
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, f.To.UTC())
	}

	limit := f.Limit
	if limit <= 0 || limit > maxRows {
		limit = maxRows
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", insertColumns, table)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC LIMIT ?")
	args = append(args, limit)
	return b.String(), args
}

func (s *CHPredictionStore) Query(ctx context.Context, f models.HistoryFilter) ([]*models.PredictionResult, error) {
	q, args := historyQuery(s.table, f, s.maxRows)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse query predictions error", applogger.Error(err))
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []*models.PredictionResult
	for rows.Next() {
		var (
			r        models.PredictionResult
			label    uint8
			tier     string
			overlay  string
			features []float64
			degraded uint8
		)
		if err := rows.Scan(&r.ID, &r.RequestID, &r.CustomerID, &r.ModelName, &label, &r.Probability,
			&r.RiskScore, &r.Threshold, &tier, &overlay, &features, &degraded, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		r.Label = int(label)
		r.Tier = models.Tier(tier)
		r.Degraded = degraded == 1
		if overlay != "" {
			if err := json.Unmarshal([]byte(overlay), &r.Overlay); err != nil {
				return nil, fmt.Errorf("decode overlay for %s: %w", r.ID, err)
			}
		}
		if v, err := models.FeatureVectorFromSlice(features); err == nil {
			r.RawInput = v
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// summaryQuery aggregates the window per tier with no row cap. Degraded
// rows are counted apart so the caller can keep them out of the averages.
func summaryQuery(table string, from, to time.Time, cut float64) (string, []interface{}) {
	args := []interface{}{cut}
	var where []string
	if !from.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, to.UTC())
	}

	var b strings.Builder
	fmt.Fprintf(&b, `SELECT tier,
    count(),
    countIf(degraded = 1),
    countIf(degraded = 0 AND probability >= ?),
    sumIf(label, degraded = 0),
    sumIf(probability, degraded = 0),
    sumIf(risk_score, degraded = 0)
FROM %s`, table)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" GROUP BY tier")
	return b.String(), args
}

func (s *CHPredictionStore) Summary(ctx context.Context, from, to time.Time, cut float64) (*models.PortfolioSummary, error) {
	q, args := summaryQuery(s.table, from, to, cut)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse summarize predictions error", applogger.Error(err))
		return nil, fmt.Errorf("summarize predictions: %w", err)
	}
	defer rows.Close()

	sum := models.NewPortfolioSummary(from, to, cut)
	for rows.Next() {
		var (
			tier                                 string
			total, degraded, highRisk, positives uint64
			sumP, sumRisk                        float64
		)
		if err := rows.Scan(&tier, &total, &degraded, &highRisk, &positives, &sumP, &sumRisk); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.AddAggregate(models.TierAggregate{
			Tier:           models.Tier(tier),
			Total:          int(total),
			Degraded:       int(degraded),
			HighRisk:       int(highRisk),
			PositiveLabels: int(positives),
			SumProbability: sumP,
			SumRiskScore:   sumRisk,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return sum, nil
}

func (s *CHPredictionStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHPredictionStore) Close() error {
	return s.ch.Close()
}

var _ domrepo.PredictionStore = (*CHPredictionStore)(nil)
