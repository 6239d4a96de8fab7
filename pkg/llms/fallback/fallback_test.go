package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Nephrolytics-ai/medscribe/pkg/model"
)

// scriptedBackend replays a canned sequence of results, one per Generate call.
type scriptedBackend struct {
	name    string
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	output string
	err    error
}

func (b *scriptedBackend) Name() string { return b.name }

func (b *scriptedBackend) Generate(_ context.Context, _ string, _ string, _ model.ResponseShape) (string, error) {
	if b.calls >= len(b.results) {
		return "", errors.New("unexpected extra call")
	}
	result := b.results[b.calls]
	b.calls++
	return result.output, result.err
}

func quotaErr(provider, modelName string) error {
	return model.NewProviderError(provider, modelName, model.FailureQuotaExceeded, errors.New("429 resource exhausted"))
}

func transientErr(provider, modelName string) error {
	return model.NewProviderError(provider, modelName, model.FailureTransient, errors.New("503 service unavailable"))
}

func fatalErr(provider, modelName string) error {
	return model.NewProviderError(provider, modelName, model.FailureFatal, errors.New("invalid api key"))
}

type FallbackTestSuite struct {
	suite.Suite
}

func TestFallbackTestSuite(t *testing.T) {
	suite.Run(t, new(FallbackTestSuite))
}

func (s *FallbackTestSuite) newController(chain []ModelRef, backends ...model.Backend) *Controller {
	controller, err := New(Config{
		Chain:               chain,
		MaxAttemptsPerModel: 3,
		AttemptTimeout:      time.Second,
		BaseBackoff:         time.Millisecond,
		MaxBackoff:          4 * time.Millisecond,
	}, backends...)
	s.Require().NoError(err)
	return controller
}

func (s *FallbackTestSuite) TestParseChain() {
	refs, err := ParseChain("gemini:gemini-2.5-flash, openai:gpt-5-mini")
	s.Require().NoError(err)
	s.Require().Len(refs, 2)
	s.Equal(ModelRef{Backend: "gemini", Model: "gemini-2.5-flash"}, refs[0])
	s.Equal(ModelRef{Backend: "openai", Model: "gpt-5-mini"}, refs[1])
}

func (s *FallbackTestSuite) TestParseChainRejectsMalformedEntry() {
	_, err := ParseChain("gemini:gemini-2.5-flash,gpt-5-mini")
	s.Error(err)

	_, err = ParseChain("")
	s.Error(err)
}

func (s *FallbackTestSuite) TestNewRejectsUnknownBackend() {
	backend := &scriptedBackend{name: "gemini"}
	_, err := New(Config{Chain: []ModelRef{{Backend: "openai", Model: "gpt-5-mini"}}}, backend)
	s.Error(err)
	s.Contains(err.Error(), "openai")
}

func (s *FallbackTestSuite) TestFirstModelSucceeds() {
	backend := &scriptedBackend{
		name:    "gemini",
		results: []scriptedResult{{output: "hello"}},
	}
	controller := s.newController([]ModelRef{{Backend: "gemini", Model: "gemini-2.5-flash"}}, backend)

	output, attempts, err := controller.Invoke(context.Background(), "prompt", model.ShapeText())
	s.Require().NoError(err)
	s.Equal("hello", output)
	s.Require().Len(attempts, 1)
	s.Equal(model.OutcomeSuccess, attempts[0].Outcome)
	s.Equal("gemini", attempts[0].Provider)
}

func (s *FallbackTestSuite) TestQuotaAdvancesWithoutRetry() {
	primary := &scriptedBackend{
		name:    "gemini",
		results: []scriptedResult{{err: quotaErr("gemini", "gemini-2.5-flash")}},
	}
	secondary := &scriptedBackend{
		name:    "openai",
		results: []scriptedResult{{output: "from backup"}},
	}
	controller := s.newController([]ModelRef{
		{Backend: "gemini", Model: "gemini-2.5-flash"},
		{Backend: "openai", Model: "gpt-5-mini"},
	}, primary, secondary)

	output, attempts, err := controller.Invoke(context.Background(), "prompt", model.ShapeText())
	s.Require().NoError(err)
	s.Equal("from backup", output)
	s.Equal(1, primary.calls, "quota failures must not be retried on the same model")
	s.Require().Len(attempts, 2)
	s.Equal(string(model.FailureQuotaExceeded), attempts[0].Outcome)
	s.Equal(model.OutcomeSuccess, attempts[1].Outcome)
}

func (s *FallbackTestSuite) TestTransientRetriesThenAdvances() {
	primary := &scriptedBackend{
		name: "gemini",
		results: []scriptedResult{
			{err: transientErr("gemini", "gemini-2.5-flash")},
			{err: transientErr("gemini", "gemini-2.5-flash")},
			{err: transientErr("gemini", "gemini-2.5-flash")},
		},
	}
	secondary := &scriptedBackend{
		name:    "openai",
		results: []scriptedResult{{output: "recovered"}},
	}
	controller := s.newController([]ModelRef{
		{Backend: "gemini", Model: "gemini-2.5-flash"},
		{Backend: "openai", Model: "gpt-5-mini"},
	}, primary, secondary)

	output, attempts, err := controller.Invoke(context.Background(), "prompt", model.ShapeText())
	s.Require().NoError(err)
	s.Equal("recovered", output)
	s.Equal(3, primary.calls)
	s.Require().Len(attempts, 4)
	for _, attempt := range attempts[:3] {
		s.Equal(string(model.FailureTransient), attempt.Outcome)
	}
}

func (s *FallbackTestSuite) TestTransientRecoversOnSameModel() {
	backend := &scriptedBackend{
		name: "gemini",
		results: []scriptedResult{
			{err: transientErr("gemini", "gemini-2.5-flash")},
			{output: "second try"},
		},
	}
	controller := s.newController([]ModelRef{{Backend: "gemini", Model: "gemini-2.5-flash"}}, backend)

	output, attempts, err := controller.Invoke(context.Background(), "prompt", model.ShapeText())
	s.Require().NoError(err)
	s.Equal("second try", output)
	s.Len(attempts, 2)
}

func (s *FallbackTestSuite) TestFatalAbortsChain() {
	primary := &scriptedBackend{
		name:    "gemini",
		results: []scriptedResult{{err: fatalErr("gemini", "gemini-2.5-flash")}},
	}
	secondary := &scriptedBackend{name: "openai"}
	controller := s.newController([]ModelRef{
		{Backend: "gemini", Model: "gemini-2.5-flash"},
		{Backend: "openai", Model: "gpt-5-mini"},
	}, primary, secondary)

	_, attempts, err := controller.Invoke(context.Background(), "prompt", model.ShapeText())
	s.Require().Error(err)
	s.Equal(0, secondary.calls, "fatal failures must not fall through to later models")
	s.Require().Len(attempts, 1)

	var providerErr *model.ProviderError
	s.Require().ErrorAs(err, &providerErr)
	s.Equal(model.FailureFatal, providerErr.Kind)
}

func (s *FallbackTestSuite) TestAllModelsExhausted() {
	chain := []ModelRef{
		{Backend: "gemini", Model: "gemini-2.5-flash"},
		{Backend: "gemini", Model: "gemini-2.5-flash-lite"},
		{Backend: "gemini", Model: "gemini-3.0-flash"},
		{Backend: "openai", Model: "gpt-5-mini"},
	}
	gemini := &scriptedBackend{
		name: "gemini",
		results: []scriptedResult{
			{err: quotaErr("gemini", "gemini-2.5-flash")},
			{err: quotaErr("gemini", "gemini-2.5-flash-lite")},
			{err: quotaErr("gemini", "gemini-3.0-flash")},
		},
	}
	oa := &scriptedBackend{
		name:    "openai",
		results: []scriptedResult{{err: quotaErr("openai", "gpt-5-mini")}},
	}
	controller := s.newController(chain, gemini, oa)

	_, attempts, err := controller.Invoke(context.Background(), "prompt", model.ShapeText())
	s.Require().Error(err)

	var unavailable *model.UnavailableError
	s.Require().ErrorAs(err, &unavailable)
	s.Require().Len(unavailable.Attempts, 4)
	s.Len(attempts, 4)
	for i, attempt := range unavailable.Attempts {
		s.Equal(chain[i].Backend, attempt.Provider)
		s.Equal(chain[i].Model, attempt.Model)
		s.Equal(string(model.FailureQuotaExceeded), attempt.Outcome)
	}
}

func (s *FallbackTestSuite) TestContextCancellationStopsRetries() {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &scriptedBackend{
		name: "gemini",
		results: []scriptedResult{
			{err: transientErr("gemini", "gemini-2.5-flash")},
			{err: transientErr("gemini", "gemini-2.5-flash")},
			{err: transientErr("gemini", "gemini-2.5-flash")},
		},
	}
	controller, err := New(Config{
		Chain:               []ModelRef{{Backend: "gemini", Model: "gemini-2.5-flash"}},
		MaxAttemptsPerModel: 3,
		AttemptTimeout:      time.Second,
		BaseBackoff:         time.Hour,
		MaxBackoff:          time.Hour,
	}, backend)
	s.Require().NoError(err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err = controller.Invoke(ctx, "prompt", model.ShapeText())
	s.Require().Error(err)
	s.ErrorIs(err, context.Canceled)
	s.Equal(1, backend.calls)
}

// cancellingBackend cancels the request context from inside the call, the
// way a client disconnect surfaces mid-attempt.
type cancellingBackend struct {
	name   string
	cancel context.CancelFunc
}

func (b *cancellingBackend) Name() string { return b.name }

func (b *cancellingBackend) Generate(_ context.Context, _ string, _ string, _ model.ResponseShape) (string, error) {
	b.cancel()
	return "", transientErr(b.name, "gemini-2.5-flash")
}

func (s *FallbackTestSuite) TestCancellationMidAttemptKeepsAttemptHistory() {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &cancellingBackend{name: "gemini", cancel: cancel}
	controller := s.newController([]ModelRef{{Backend: "gemini", Model: "gemini-2.5-flash"}}, backend)

	_, attempts, err := controller.Invoke(ctx, "prompt", model.ShapeText())
	s.Require().Error(err)
	s.ErrorIs(err, context.Canceled)
	s.Require().Len(attempts, 1)
	s.Equal(string(model.FailureTransient), attempts[0].Outcome)
	s.NotEmpty(attempts[0].Error)
}

func (s *FallbackTestSuite) TestBackoffDelayDoublesAndCaps() {
	base := 2 * time.Second
	max := 30 * time.Second

	s.Equal(2*time.Second, backoffDelay(0, base, max))
	s.Equal(4*time.Second, backoffDelay(1, base, max))
	s.Equal(8*time.Second, backoffDelay(2, base, max))
	s.Equal(16*time.Second, backoffDelay(3, base, max))
	s.Equal(30*time.Second, backoffDelay(4, base, max))
	s.Equal(30*time.Second, backoffDelay(10, base, max))
}
