// Package inference runs a feature record through the fitted scaler and
// classifier and turns the result into something a person can read.
package inference

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"busdelay/features"
	"busdelay/metrics"
	"busdelay/ml"
)

const (
	LabelDelayed = "Delayed"
	LabelOnTime  = "On Time"
)

// Prediction is the readable verdict for one record.
type Prediction struct {
	Class int    `json:"class"`
	Label string `json:"label"`
	// DelayProbability is the model's probability of class 1.
	DelayProbability float64 `json:"delay_probability"`
	// Confidence is the probability of the label shown.
	Confidence float64 `json:"confidence"`
	Percent    string  `json:"percent"`
	Message    string  `json:"message"`
	Generation uint64  `json:"model_generation"`
}

// Delayed reports whether the positive class was predicted.
func (p Prediction) Delayed() bool {
	return p.Class == 1
}

// Outcome is either a prediction or a message explaining why there is none.
type Outcome struct {
	Prediction *Prediction `json:"prediction,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func (o Outcome) OK() bool {
	return o.Prediction != nil
}

type Options struct {
	// Variant names the form flow in logs and metrics.
	Variant   string
	Locale    string
	CacheSize int
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// Predictor evaluates records against the artifacts its source provides.
type Predictor struct {
	variant string
	source  ml.Source
	cache   *lru.Cache[string, Prediction]
	printer *message.Printer
	metrics *metrics.Collector
	logger  *zap.Logger
}

func New(source ml.Source, opts Options) (*Predictor, error) {
	locale := opts.Locale
	if locale == "" {
		locale = "en"
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Predictor{
		variant: opts.Variant,
		source:  source,
		printer: message.NewPrinter(tag),
		metrics: opts.Metrics,
		logger:  logger.With(zap.String("variant", opts.Variant)),
	}
	if opts.CacheSize > 0 {
		p.cache, err = lru.New[string, Prediction](opts.CacheSize)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Predictor) Variant() string {
	return p.variant
}

// Predict transforms rec with the scaler and asks the classifier for a class
// and a positive-class probability. Any failure is returned to the caller.
func (p *Predictor) Predict(ctx context.Context, rec features.Record) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	start := time.Now()
	artifacts := p.source.Current()
	key := fmt.Sprintf("%d|%s", artifacts.Generation(), rec.Key())
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			p.metrics.ObserveCache(p.variant, true)
			p.metrics.ObservePrediction(p.variant, cached.Label, time.Since(start))
			return cached, nil
		}
		p.metrics.ObserveCache(p.variant, false)
	}

	scaled, err := artifacts.Scaler().Transform(rec)
	if err != nil {
		return Prediction{}, p.fail("transform", err)
	}
	class, err := artifacts.Model().Predict(scaled)
	if err != nil {
		return Prediction{}, p.fail("predict", err)
	}
	proba, err := artifacts.Model().PredictProba(scaled)
	if err != nil {
		return Prediction{}, p.fail("predict_proba", err)
	}
	if class != 0 && class != 1 {
		return Prediction{}, p.fail("predict", fmt.Errorf("classifier returned non-binary class %d", class))
	}

	pred := p.format(class, proba)
	pred.Generation = artifacts.Generation()
	elapsed := time.Since(start)
	p.metrics.ObservePrediction(p.variant, pred.Label, elapsed)
	p.logger.Debug("prediction",
		zap.String("record", rec.Key()),
		zap.String("label", pred.Label),
		zap.Float64("delay_probability", proba),
		zap.Duration("elapsed", elapsed),
	)
	if p.cache != nil {
		p.cache.Add(key, pred)
	}
	return pred, nil
}

// Evaluate is Predict with every failure, panics included, folded into an
// Outcome the page can show.
func (p *Predictor) Evaluate(ctx context.Context, rec features.Record) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.ObserveFailure(p.variant, "panic")
			p.logger.Error("prediction panicked", zap.Any("panic", r))
			out = Outcome{Error: fmt.Sprintf("Error during prediction: %v", r)}
		}
	}()
	pred, err := p.Predict(ctx, rec)
	if err != nil {
		return Outcome{Error: fmt.Sprintf("Error during prediction: %v", err)}
	}
	return Outcome{Prediction: &pred}
}

// Percent renders a probability the way predictions display it.
func (p *Predictor) Percent(v float64) string {
	return p.printer.Sprintf("%.2f%%", v*100)
}

func (p *Predictor) format(class int, proba float64) Prediction {
	pred := Prediction{Class: class, DelayProbability: proba}
	if class == 1 {
		pred.Label = LabelDelayed
		pred.Confidence = proba
	} else {
		pred.Label = LabelOnTime
		pred.Confidence = 1 - proba
	}
	pred.Percent = p.Percent(pred.Confidence)
	pred.Message = p.printer.Sprintf("Likely to be %s (%s probability)", pred.Label, pred.Percent)
	return pred
}

func (p *Predictor) fail(stage string, err error) error {
	p.metrics.ObserveFailure(p.variant, stage)
	p.logger.Warn("prediction failed", zap.String("stage", stage), zap.Error(err))
	return fmt.Errorf("%s: %w", stage, err)
}
