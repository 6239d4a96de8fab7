// Package fallback wraps generative backend calls behind an ordered list of
// model identifiers. Quota and transient failures advance through the chain;
// fatal failures abort immediately. Controllers are stateless across
// invocations: every Invoke builds its attempt history from scratch.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/medscribe/pkg/logging"
	"github.com/Nephrolytics-ai/medscribe/pkg/model"
	"github.com/Nephrolytics-ai/medscribe/pkg/utils"
)

// ModelRef is one identifier in the fallback chain: a backend name plus the
// model it should run.
type ModelRef struct {
	Backend string
	Model   string
}

func (r ModelRef) String() string {
	return r.Backend + ":" + r.Model
}

// ParseChain parses a comma-separated chain such as
// "gemini:gemini-2.5-flash,openai:gpt-5-mini".
func ParseChain(raw string) ([]ModelRef, error) {
	refs := make([]ModelRef, 0, 4)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		backend, modelName, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(backend) == "" || strings.TrimSpace(modelName) == "" {
			return nil, utils.WrapIfNotNil(fmt.Errorf("invalid model reference %q, want backend:model", entry))
		}
		refs = append(refs, ModelRef{
			Backend: strings.TrimSpace(backend),
			Model:   strings.TrimSpace(modelName),
		})
	}
	if len(refs) == 0 {
		return nil, utils.WrapIfNotNil(errors.New("model chain is empty"))
	}
	return refs, nil
}

type Config struct {
	Chain []ModelRef
	// MaxAttemptsPerModel bounds transient retries on one identifier before
	// advancing to the next.
	MaxAttemptsPerModel int
	// AttemptTimeout bounds each individual backend call.
	AttemptTimeout time.Duration
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
}

const (
	defaultMaxAttemptsPerModel = 3
	defaultAttemptTimeout      = 90 * time.Second
	defaultBaseBackoff         = 2 * time.Second
	defaultMaxBackoff          = 30 * time.Second
)

func (c *Config) applyDefaults() {
	if c.MaxAttemptsPerModel <= 0 {
		c.MaxAttemptsPerModel = defaultMaxAttemptsPerModel
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = defaultAttemptTimeout
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = defaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
}

type Controller struct {
	cfg      Config
	backends map[string]model.Backend
}

// New validates that every chain entry resolves to a registered backend.
func New(cfg Config, backends ...model.Backend) (*Controller, error) {
	cfg.applyDefaults()
	if len(cfg.Chain) == 0 {
		return nil, utils.WrapIfNotNil(errors.New("model chain is empty"))
	}

	registry := make(map[string]model.Backend, len(backends))
	for _, backend := range backends {
		if backend == nil {
			continue
		}
		registry[backend.Name()] = backend
	}

	for _, ref := range cfg.Chain {
		if _, ok := registry[ref.Backend]; !ok {
			return nil, utils.WrapIfNotNil(fmt.Errorf("chain references unknown backend %q", ref.Backend))
		}
	}

	return &Controller{cfg: cfg, backends: registry}, nil
}

// Invoke walks the chain in order and returns the first successful raw
// output along with the attempt history. Retries are sequential, never
// parallel, so fallback order and billing stay predictable.
func (c *Controller) Invoke(ctx context.Context, prompt string, shape model.ResponseShape) (string, []model.CallAttempt, error) {
	log := logging.NewLogger(ctx)
	attempts := make([]model.CallAttempt, 0, len(c.cfg.Chain))

chain:
	for _, ref := range c.cfg.Chain {
		backend := c.backends[ref.Backend]

		for attempt := 0; attempt < c.cfg.MaxAttemptsPerModel; attempt++ {
			if attempt > 0 {
				delay := backoffDelay(attempt-1, c.cfg.BaseBackoff, c.cfg.MaxBackoff)
				log.Warnf("fallback: retrying %s in %s (attempt %d/%d)",
					ref, delay, attempt+1, c.cfg.MaxAttemptsPerModel)
				if err := sleepContext(ctx, delay); err != nil {
					return "", attempts, utils.WrapIfNotNil(err)
				}
			}

			callCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
			start := time.Now()
			output, err := backend.Generate(callCtx, ref.Model, prompt, shape)
			cancel()
			latency := time.Since(start)

			if err == nil {
				attempts = append(attempts, model.CallAttempt{
					Provider: ref.Backend,
					Model:    ref.Model,
					Outcome:  model.OutcomeSuccess,
					Latency:  latency,
				})
				if len(attempts) > 1 {
					log.Infof("fallback: succeeded on %s after %d attempts", ref, len(attempts))
				}
				return output, attempts, nil
			}

			kind := model.KindOf(err)
			attempts = append(attempts, model.CallAttempt{
				Provider: ref.Backend,
				Model:    ref.Model,
				Outcome:  string(kind),
				Latency:  latency,
				Error:    err.Error(),
			})

			if ctx.Err() != nil {
				return "", attempts, utils.WrapIfNotNil(ctx.Err())
			}

			switch kind {
			case model.FailureQuotaExceeded:
				log.Warnf("fallback: quota exceeded on %s, trying next model", ref)
				continue chain
			case model.FailureTransient:
				log.Warnf("fallback: transient failure on %s: %v", ref, err)
				continue
			default:
				// Fatal: no other identifier can fix an auth/config problem.
				log.Errorf("fallback: fatal failure on %s: %v", ref, err)
				return "", attempts, err
			}
		}
	}

	err := &model.UnavailableError{Attempts: attempts}
	log.Errorf("fallback: %v", err)
	return "", attempts, err
}

// backoffDelay is a pure function of the attempt count: base doubled per
// attempt, capped at max.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
