package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
)

type foodRepoFake struct {
	mu         sync.Mutex
	records    map[string]*domain.FoodRecord
	scripted   map[string][]domain.FoodCandidate
	searchErr  error
	loadErr    error
	calls      map[string]int
	lastLimits []int
}

func newFoodRepoFake(records ...*domain.FoodRecord) *foodRepoFake {
	f := &foodRepoFake{
		records:  make(map[string]*domain.FoodRecord),
		scripted: make(map[string][]domain.FoodCandidate),
		calls:    make(map[string]int),
	}
	for _, r := range records {
		f.records[r.ID] = r
	}
	return f
}

func (f *foodRepoFake) script(query string, candidates ...domain.FoodCandidate) {
	f.scripted[query] = candidates
}

func (f *foodRepoFake) callCount(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[query]
}

func (f *foodRepoFake) EnsureLoaded(context.Context) error { return f.loadErr }
func (f *foodRepoFake) Refresh(context.Context) error      { return f.loadErr }
func (f *foodRepoFake) Stats(context.Context) (domain.ReferenceStats, error) {
	return domain.ReferenceStats{Records: len(f.records)}, nil
}

func (f *foodRepoFake) GetByID(_ context.Context, id string) (*domain.FoodRecord, error) {
	if r, ok := f.records[id]; ok {
		return r, nil
	}
	return nil, domain.WrapError(domain.ErrFoodNotFound, "get", errors.New(id))
}

func (f *foodRepoFake) GetByExactName(_ context.Context, name string) (*domain.FoodRecord, error) {
	for _, r := range f.records {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return nil, domain.WrapError(domain.ErrFoodNotFound, "get", errors.New(name))
}

func (f *foodRepoFake) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.FoodRecord, error) {
	out := make(map[string]*domain.FoodRecord)
	for _, id := range ids {
		if r, err := f.GetByID(ctx, id); err == nil {
			out[id] = r
		}
	}
	return out, nil
}

func (f *foodRepoFake) SearchByPartialName(context.Context, string, int) ([]*domain.FoodRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *foodRepoFake) SearchByCategory(context.Context, string, int) ([]*domain.FoodRecord, error) {
	return nil, errors.New("not implemented")
}

// SearchByFuzzyMatch returns scripted candidates, or an exact-name hit with
// similarity 1.
func (f *foodRepoFake) SearchByFuzzyMatch(_ context.Context, query string, limit int) ([]domain.FoodCandidate, error) {
	f.mu.Lock()
	f.calls[query]++
	f.lastLimits = append(f.lastLimits, limit)
	f.mu.Unlock()

	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if c, ok := f.scripted[query]; ok {
		return c, nil
	}
	for _, r := range f.records {
		if strings.EqualFold(r.Name, query) {
			return []domain.FoodCandidate{{Record: r, Similarity: 1}}, nil
		}
	}
	return []domain.FoodCandidate{}, nil
}

type recorderFake struct {
	mu            sync.Mutex
	matched       int
	unmatched     int
	tiers         map[domain.ConfidenceTier]int
	lowConfidence int
	aggregations  int
}

func newRecorderFake() *recorderFake {
	return &recorderFake{tiers: make(map[domain.ConfidenceTier]int)}
}

func (r *recorderFake) RecordMatch(tier domain.ConfidenceTier, matched bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if matched {
		r.matched++
	} else {
		r.unmatched++
	}
	r.tiers[tier]++
}

func (r *recorderFake) RecordLowConfidenceMatch() {
	r.mu.Lock()
	r.lowConfidence++
	r.mu.Unlock()
}

func (r *recorderFake) RecordAggregation(int, int, float64, time.Duration) {
	r.mu.Lock()
	r.aggregations++
	r.mu.Unlock()
}

// gramParserFake understands "<n>g" and "<n>" (100 g per piece); "bad" fails
// parsing and "unconvertible" fails conversion.
type gramParserFake struct {
	confidence float64
}

func (p gramParserFake) ParseQuantity(text string, _ domain.FoodProfile) (domain.ParsedQuantity, error) {
	conf := p.confidence
	if conf == 0 {
		conf = 1
	}
	t := strings.TrimSpace(text)
	switch {
	case t == "bad":
		return domain.ParsedQuantity{}, domain.WrapError(domain.ErrQuantityParse, "parse quantity", fmt.Errorf("%q", text))
	case t == "unconvertible":
		return domain.ParsedQuantity{Quantity: domain.Quantity{Value: 1, Unit: "furlong"}, Confidence: conf}, nil
	case strings.HasSuffix(t, "g"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(t, "g"), 64)
		if err != nil {
			return domain.ParsedQuantity{}, domain.WrapError(domain.ErrQuantityParse, "parse quantity", err)
		}
		return domain.ParsedQuantity{Quantity: domain.Quantity{Value: v, Unit: "g"}, Confidence: conf}, nil
	case t == "":
		return domain.ParsedQuantity{Quantity: domain.Quantity{Value: 1, Unit: "piece"}, Confidence: 0.5}, nil
	default:
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return domain.ParsedQuantity{}, domain.WrapError(domain.ErrUnknownUnit, "parse quantity", err)
		}
		return domain.ParsedQuantity{Quantity: domain.Quantity{Value: v, Unit: "piece"}, Confidence: 0.7}, nil
	}
}

func (p gramParserFake) ConvertToGrams(q domain.Quantity, _ domain.FoodProfile) (domain.GramsResult, error) {
	switch q.Unit {
	case "g":
		return domain.GramsResult{Grams: q.Value, Confidence: 1}, nil
	case "piece":
		return domain.GramsResult{Grams: q.Value * 100, Confidence: 0.6}, nil
	default:
		return domain.GramsResult{}, domain.WrapError(domain.ErrUnknownUnit, "convert quantity", fmt.Errorf("unit %q", q.Unit))
	}
}

func ptr(v float64) *float64 { return &v }
